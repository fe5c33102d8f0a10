package optimize

import "fmt"

type Mode string

const (
	ModeConsecutive Mode = "consecutive" // One contiguous run of slots
	ModeCheapest    Mode = "cheapest"    // Cheapest slots anywhere in the series
)

func (m Mode) String() string {
	return string(m)
}

func (m Mode) IsValid() bool {
	return m == ModeConsecutive || m == ModeCheapest
}

func ParseMode(str string) (Mode, error) {
	m := Mode(str)
	if !m.IsValid() {
		return "", fmt.Errorf("unknown mode %q", str)
	}
	return m, nil
}
