package session

import (
	"fmt"

	"github.com/Zachdehooge/wms-animator/internal/events"
)

// InputType enumerates the UI input events a session accepts.
type InputType string

const (
	InputSelectLayer  InputType = "select-layer"
	InputSelectStyle  InputType = "select-style"
	InputSliderDrag   InputType = "slider-drag"
	InputSliderCommit InputType = "slider-commit"
	InputPlayToggle   InputType = "play-toggle"
	InputSetTime      InputType = "set-time"
	InputSetOpacity   InputType = "set-opacity"
)

// Input is one UI event. Only the fields of its type are read.
type Input struct {
	Type    InputType `json:"type"`
	Slot    int       `json:"slot,omitempty"`
	Title   string    `json:"title,omitempty"`
	Style   string    `json:"style,omitempty"`
	Index   int       `json:"index,omitempty"`
	Time    string    `json:"time,omitempty"`
	Opacity float64   `json:"opacity,omitempty"`
}

// Handle applies in. Inputs that cannot be applied return an error and are
// also published as InputRejected so every subscriber sees them.
func (s *Session) Handle(in Input) error {
	err := s.dispatch(in)
	if err != nil {
		s.logger.Warn().Err(err).Str("input", string(in.Type)).Msg("input rejected")
		s.bus.Publish(events.EventInputRejected, events.InputRejected{Input: string(in.Type), Error: err.Error()})
	}
	return err
}

func (s *Session) dispatch(in Input) error {
	switch in.Type {
	case InputSelectLayer:
		_, err := s.SelectLayer(in.Slot, in.Title)
		return err
	case InputSelectStyle:
		_, err := s.SelectStyle(in.Slot, in.Style)
		return err
	case InputSliderDrag:
		s.PreviewTime(in.Index)
	case InputSliderCommit:
		s.CommitTime(in.Index)
	case InputSetTime:
		s.SetTime(in.Time)
	case InputPlayToggle:
		s.TogglePlay()
	case InputSetOpacity:
		s.SetOpacity(in.Slot, in.Opacity)
	default:
		return fmt.Errorf("unknown input type %q", in.Type)
	}
	return nil
}
