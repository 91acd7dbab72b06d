//go:build capmap_morello

package arch

import (
	"errors"
	"testing"
)

func Test_Hardware_Harvest_Is_Inert_On_This_Build(t *testing.T) {
	t.Parallel()

	hw := NewHardware()

	_, err := hw.Harvest(1)
	if !errors.Is(err, ErrUnsupportedArch) {
		t.Errorf("err = %v, want ErrUnsupportedArch", err)
	}
}
