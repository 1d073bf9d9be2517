// Package model contains the event types flowing between service
// components.
package model

import (
	"errors"
	"time"
)

// HatchEvent is one resolved hatch outcome, queued for asynchronous
// recording after the synchronous resolution already answered the
// caller.
type HatchEvent struct {
	HatchID    string    `json:"hatch_id"`
	RequestID  string    `json:"request_id"`
	SubjectID  string    `json:"subject_id"`
	EggID      string    `json:"egg_id"`
	CategoryID string    `json:"category_id"`
	RarityID   string    `json:"rarity_id"`
	Luck       float64   `json:"luck"`
	At         time.Time `json:"at"`
}

// Validate reports whether the event carries everything the history
// store needs.
func (e HatchEvent) Validate() error {
	switch {
	case e.HatchID == "":
		return errors.New("missing hatch_id")
	case e.SubjectID == "":
		return errors.New("missing subject_id")
	case e.EggID == "":
		return errors.New("missing egg_id")
	case e.CategoryID == "":
		return errors.New("missing category_id")
	case e.RarityID == "":
		return errors.New("missing rarity_id")
	case e.At.IsZero():
		return errors.New("missing timestamp")
	}
	return nil
}
