package service

import (
	"errors"

	"github.com/pokerjest/animeAggregator/internal/store"
)

var (
	// ErrNotFound is the store's sentinel so one errors.Is check covers both layers.
	ErrNotFound = store.ErrNotFound
	ErrBadInput = errors.New("bad input")
)
