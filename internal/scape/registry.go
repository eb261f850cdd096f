package scape

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnknownScape = errors.New("unknown scape")

var builtIn = map[string]func() Scape{
	"xor":  func() Scape { return XORScape{} },
	"sine": func() Scape { return SineRegressionScape{} },
}

// ByName resolves a built-in scape; names are case-insensitive.
func ByName(name string) (Scape, error) {
	build, ok := builtIn[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownScape, name, strings.Join(Names(), ", "))
	}
	return build(), nil
}

func Names() []string {
	names := make([]string, 0, len(builtIn))
	for name := range builtIn {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
