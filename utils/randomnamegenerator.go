package utils

import (
	"math/rand"
	"sync"

	"github.com/Pallinder/go-randomdata"
)

// randomdata draws from one package-level source, guard it
var randomNameLock sync.Mutex

// Hands out placeholder names for scene entities that were dumped
// without one. Fresh generator restarts the sequence, so repeated
// parses of the same file invent the same names.
type RandomNameGenerator map[string]struct{}

func (rng *RandomNameGenerator) RandomName() string {
	randomNameLock.Lock()
	defer randomNameLock.Unlock()
	if *rng == nil {
		*rng = make(map[string]struct{})
		randomdata.CustomRand(rand.New(rand.NewSource(0)))
	}
	for {
		name := randomdata.SillyName()
		// avoid duplicate names
		if _, exists := (*rng)[name]; !exists {
			(*rng)[name] = struct{}{}
			return name
		}
	}
}
