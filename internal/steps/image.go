package steps

import (
	"errors"
	"fmt"

	"virtualcare/internal/media"
	"virtualcare/internal/sequencer"
)

// MaxSlots is the number of photo slots in a multi-image step.
const MaxSlots = 5

// Slot holds one accepted file and, once computed, its preview.
type Slot struct {
	File    *media.File
	Preview *media.Preview
}

// Empty reports whether no file is in the slot.
func (s Slot) Empty() bool { return s.File == nil }

// accept validates f. A rejected file leaves state untouched.
func accept(f *media.File) *Notice {
	if f == nil {
		return warn(MsgNoPhoto)
	}
	if err := media.Validate(f); err != nil {
		var verr *media.ValidationError
		if errors.As(err, &verr) {
			return warn(verr.Reason)
		}
		return warn(err.Error())
	}
	return nil
}

// ImageStep accepts exactly one file.
type ImageStep struct {
	base
	slot Slot
}

// Accept validates and stores f, replacing any previous file. The preview
// must be attached separately with SetPreview once computed.
func (s *ImageStep) Accept(f *media.File) *Notice {
	if n := accept(f); n != nil {
		return n
	}
	s.slot = Slot{File: f}
	return nil
}

// SetPreview attaches a preview if f is still the accepted file.
func (s *ImageStep) SetPreview(f *media.File, p media.Preview) {
	if s.slot.File == f {
		s.slot.Preview = &p
	}
}

// Slot returns the accepted file and preview.
func (s *ImageStep) Slot() Slot { return s.slot }

// Ready reports whether confirmation is enabled.
func (s *ImageStep) Ready() bool { return !s.slot.Empty() }

// Confirm confirms the accepted file.
func (s *ImageStep) Confirm() Result {
	if s.slot.Empty() {
		return rejected(warn(MsgNoPhoto))
	}
	return confirmed(sequencer.FileValue{File: s.slot.File})
}

// MultiImageStep offers MaxSlots independent photo slots.
type MultiImageStep struct {
	base
	slots [MaxSlots]Slot
}

// Accept validates and stores f in slot i (0-based).
func (s *MultiImageStep) Accept(i int, f *media.File) *Notice {
	if i < 0 || i >= MaxSlots {
		return &Notice{Level: LevelError, Message: fmt.Sprintf("There is no photo slot %d", i+1)}
	}
	if n := accept(f); n != nil {
		return n
	}
	s.slots[i] = Slot{File: f}
	return nil
}

// SetPreview attaches a preview to slot i if f is still in it.
func (s *MultiImageStep) SetPreview(i int, f *media.File, p media.Preview) {
	if i >= 0 && i < MaxSlots && s.slots[i].File == f {
		s.slots[i].Preview = &p
	}
}

// Clear empties slot i.
func (s *MultiImageStep) Clear(i int) {
	if i >= 0 && i < MaxSlots {
		s.slots[i] = Slot{}
	}
}

// Slots returns all slots, empty ones included.
func (s *MultiImageStep) Slots() [MaxSlots]Slot { return s.slots }

// Files returns the accepted files in slot order.
func (s *MultiImageStep) Files() []*media.File {
	var out []*media.File
	for _, sl := range s.slots {
		if !sl.Empty() {
			out = append(out, sl.File)
		}
	}
	return out
}

// Skip confirms an empty list regardless of accepted files.
func (s *MultiImageStep) Skip() Result { return confirmed(sequencer.FileList{}) }

// Next confirms the accepted files; at least one is required.
func (s *MultiImageStep) Next() Result {
	files := s.Files()
	if len(files) == 0 {
		return rejected(warn(MsgNoPhotos))
	}
	return confirmed(sequencer.FileList(files))
}
