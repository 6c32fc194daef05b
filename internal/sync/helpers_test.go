package sync

import (
	"fmt"
	"time"

	"github.com/klauern/tokensync/internal/model"
)

var fixedTime = time.UnixMilli(1700000000000).UTC()

func fixedClock() time.Time {
	return fixedTime
}

// testStamper returns a stamper with a fixed clock and sequential IDs.
func testStamper() *Stamper {
	n := 0
	return &Stamper{
		Clock: fixedClock,
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	}
}

func token(typ string, value any) model.Token {
	return model.Token{Type: typ, Value: value}
}

func collection(name string, vars map[string]model.Token) model.Collection {
	return model.Collection{Name: name, Variables: vars}
}

func snapshot(collections ...model.Collection) model.Snapshot {
	return model.Snapshot{Collections: collections}
}

func path(collection, name string) model.TokenPath {
	return model.NewTokenPath(collection, name)
}

func conflictPaths(conflicts []Conflict, kind ConflictKind) []string {
	var paths []string
	for _, c := range conflicts {
		if c.Kind() == kind {
			paths = append(paths, c.Path().String())
		}
	}
	return paths
}
