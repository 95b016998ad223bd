package timeline

import "sort"

// DefaultStat is returned by Stats when there are no notes
const DefaultStat uint8 = 64

// AllChannels selects every channel in Stats
const AllChannels = -1

// Stats returns the lowest, median and highest note number among notes on
// channel, or on every channel if channel is AllChannels. The median of an
// even count is the lower of the two middle values. With no notes every
// value is DefaultStat.
func Stats(notes []Note, channel int) (min, median, max uint8) {
	var numbers []uint8
	for _, n := range notes {
		if channel < 0 || int(n.Channel) == channel {
			numbers = append(numbers, n.Number)
		}
	}
	if len(numbers) == 0 {
		return DefaultStat, DefaultStat, DefaultStat
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	return numbers[0], numbers[(len(numbers)-1)/2], numbers[len(numbers)-1]
}
