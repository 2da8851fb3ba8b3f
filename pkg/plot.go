package pkg

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// plotLosses writes a PNG (or any format plot supports, by extension) of the
// per-epoch training loss and, when present, the validation loss.
func plotLosses(losses []EpochLoss, path string) error {
	p := plot.New()
	p.Title.Text = "Loss per epoch"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "loss"
	p.Add(plotter.NewGrid())

	train := make(plotter.XYs, len(losses))
	validation := make(plotter.XYs, 0, len(losses))
	for i, l := range losses {
		train[i] = plotter.XY{X: float64(l.Epoch), Y: l.Train}
		if l.Validation > 0 {
			validation = append(validation, plotter.XY{X: float64(l.Epoch), Y: l.Validation})
		}
	}

	trainLine, err := plotter.NewLine(train)
	if err != nil {
		return err
	}
	trainLine.Color = color.RGBA{R: 20, G: 80, B: 200, A: 255}
	trainLine.Width = vg.Points(1.5)
	p.Add(trainLine)
	p.Legend.Add("train", trainLine)

	if len(validation) > 0 {
		validationLine, err := plotter.NewLine(validation)
		if err != nil {
			return err
		}
		validationLine.Color = color.RGBA{R: 200, G: 30, B: 30, A: 255}
		validationLine.Width = vg.Points(1.5)
		validationLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(validationLine)
		p.Legend.Add("validation", validationLine)
	}

	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}
