package fingerprint

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/himanishpuri/constellation/pkg/models"
)

// StepTime is the duration of one hop in exact milliseconds.
func (p *Processor) StepTime() models.Millis {
	return models.NewMillis(int64(p.params.STFTHopSize)*1000, int64(p.params.SampleRate))
}

// bandHeight is the number of bins per frequency band, rounded half away from zero.
func bandHeight(width, bands int) int {
	return int(math.Round(float64(width) / float64(bands)))
}

// GetConstellationPoints reduces the spectrogram to a coarse grid and keeps the
// strongest bin of every cell. Rows group ConstellationXGroupSize windows and
// columns are the ConstellationYGroupAmount frequency bands. A cell that covers
// no bins yields a point with Present set to false.
func (p *Processor) GetConstellationPoints(spectrogram models.SpectrogramData) [][]models.SpectrogramPoint {
	windows := spectrogram.WindowSpectrums
	if len(windows) == 0 {
		return nil
	}

	width := len(windows[0])
	xGroup := p.params.ConstellationXGroupSize
	bands := p.params.ConstellationYGroupAmount
	height := bandHeight(width, bands)
	step := p.StepTime()

	rows := make([][]models.SpectrogramPoint, 0, (len(windows)+xGroup-1)/xGroup)
	for xMin := 0; xMin < len(windows); xMin += xGroup {
		xMax := min(xMin+xGroup, len(windows))

		row := make([]models.SpectrogramPoint, bands)
		for j := 0; j < bands; j++ {
			yMin := j * height
			yMax := min((j+1)*height, width)

			var best models.SpectrogramPoint
			for x := xMin; x < xMax; x++ {
				for y := yMin; y < yMax; y++ {
					pair := windows[x][y]
					if !best.Present || pair.Magnitude > best.Point.Magnitude {
						best = models.SpectrogramPoint{
							Point:   pair,
							Time:    step.Mul(int64(x + 1)),
							Present: true,
						}
					}
				}
			}
			row[j] = best
		}
		rows = append(rows, row)
	}

	p.log.WithFields(logrus.Fields{
		"rows":  len(rows),
		"bands": bands,
	}).Debug("Extracted constellation")

	return rows
}
