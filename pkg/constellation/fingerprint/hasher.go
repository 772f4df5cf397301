package fingerprint

import (
	"strconv"

	"github.com/himanishpuri/constellation/pkg/models"
)

// HashCode is the 31-multiplier rolling hash over the bytes of s, wrapping at
// 32 bits. Landmark strings are ASCII, so bytes and UTF-16 code units coincide.
func HashCode(s string) int32 {
	var h int32
	for i := 0; i < len(s); i++ {
		h = h*31 + int32(s[i])
	}
	return h
}

func formatFrequency(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// hashPair returns the token for an anchor and one of its targets.
func hashPair(pair models.HashPair) models.HashToken {
	delta := pair.Second.Time.Sub(pair.First.Time)
	key := formatFrequency(pair.First.Point.Frequency) +
		formatFrequency(pair.Second.Point.Frequency) +
		delta.String()

	return models.HashToken{
		Offset: pair.First.Time,
		Hash:   strconv.FormatInt(int64(HashCode(key)), 10),
	}
}

// connections returns how many time groups ahead an anchor may reach before
// any target is skipped.
func (p *Processor) connections(rowsAfter, zoneHeight int) int {
	return min(rowsAfter, p.params.FanOutFactor*p.params.FanOutStepFactor/zoneHeight)
}

// CalculateHashes pairs every usable anchor with targets in the rows after it.
// Targets come from a band window of TargetZoneHeight centred on the anchor's
// band and from every FanOutStepFactor-th following row. A target at or below the
// magnitude threshold is skipped and, while rows remain, the search reaches one
// step further to replace it.
func (p *Processor) CalculateHashes(points [][]models.SpectrogramPoint) []models.HashToken {
	var (
		hashes    []models.HashToken
		step      = p.params.FanOutStepFactor
		threshold = p.params.MagnitudeThreshold
	)

	usable := func(pt models.SpectrogramPoint) bool {
		return pt.Present && pt.Point.Magnitude > threshold
	}

	for i, row := range points {
		if len(row) == 0 {
			continue
		}
		rowsAfter := len(points) - i - 1
		zoneHeight := min(p.params.TargetZoneHeight, len(row))
		amount := p.connections(rowsAfter, zoneHeight)

		for j, anchor := range row {
			if !usable(anchor) {
				continue
			}

			hMin := min(max(j-zoneHeight/2, 0), len(row)-zoneHeight)
			for h := hMin; h < hMin+zoneHeight; h++ {
				skipped := 0
				for k := step; k <= amount+skipped; k += step {
					target := points[i+k][h]
					if usable(target) {
						hashes = append(hashes, hashPair(models.HashPair{First: anchor, Second: target}))
					} else if amount+skipped+step <= rowsAfter {
						skipped += step
					}
				}
			}
		}
	}

	p.log.WithField("hashes", len(hashes)).Debug("Calculated landmark hashes")
	return hashes
}
