// Package demo holds the fixed sample dataset substituted when a live search
// cannot run.
package demo

import (
	_ "embed"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/model"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/normalize"
	"github.com/mohrashard/bizfinder-ai-sub000/pkg/places"
)

//go:embed businesses.yaml
var dataset []byte

var load = sync.OnceValues(func() ([]model.Business, error) {
	return Parse(dataset)
})

// Parse decodes a YAML list of raw places and normalizes each one.
func Parse(data []byte) ([]model.Business, error) {
	var records []places.Place
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrap(err, "demo: parse dataset")
	}
	return normalize.NormalizeAll(records), nil
}

// Businesses returns a fresh copy of the embedded dataset. It panics if the
// embedded file is malformed.
func Businesses() []model.Business {
	list, err := load()
	if err != nil {
		panic(err)
	}
	out := make([]model.Business, len(list))
	copy(out, list)
	return out
}
