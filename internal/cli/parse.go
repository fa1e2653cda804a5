package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/roomservice/internal/runtime"
	"github.com/aretw0/roomservice/pkg/domain"
)

// ErrEmptyCommand is returned for blank input lines.
var ErrEmptyCommand = errors.New("empty command")

// ParseCommand turns a typed line into an action call.
//
// The first word is an action name or the number of one of the offered
// actions. The rest is either key=value pairs (values run until the next
// known key) or free text for the action's required parameter:
//
//	validate_room 101
//	2 breakfast
//	add_to_order item_name=eggs benedict quantity=two notes=no salt
func ParseCommand(line string, reg *runtime.Registry, offered []domain.ActionSpec) (string, map[string]any, error) {
	words := strings.Fields(line)
	if len(words) == 0 {
		return "", nil, ErrEmptyCommand
	}

	name := words[0]
	if n, err := strconv.Atoi(name); err == nil {
		if n < 1 || n > len(offered) {
			return "", nil, fmt.Errorf("choose an action between 1 and %d", len(offered))
		}
		name = offered[n-1].Name
	}
	act, ok := reg.Action(name)
	if !ok {
		return "", nil, fmt.Errorf("unknown action %q", name)
	}

	params := map[string]any{}
	rest := words[1:]
	if len(rest) == 0 {
		return name, params, nil
	}

	key := ""
	var free []string
	for _, w := range rest {
		if k, v, found := strings.Cut(w, "="); found {
			if _, known := act.Params[k]; known {
				key = k
				params[key] = v
				continue
			}
		}
		if key == "" {
			free = append(free, w)
			continue
		}
		params[key] = strings.TrimSpace(params[key].(string) + " " + w)
	}

	if len(free) > 0 {
		primary := primaryParam(act.ActionSpec)
		if primary == "" {
			return "", nil, fmt.Errorf("%s takes key=value parameters: %s", name, strings.Join(act.Params.Keys(), ", "))
		}
		if _, set := params[primary]; set {
			return "", nil, fmt.Errorf("%s given twice", primary)
		}
		params[primary] = strings.Join(free, " ")
	}
	return name, params, nil
}

// primaryParam is the parameter free text fills: the only required one.
func primaryParam(spec domain.ActionSpec) string {
	primary := ""
	for _, k := range spec.Params.Keys() {
		if spec.Params[k].Required {
			if primary != "" {
				return ""
			}
			primary = k
		}
	}
	return primary
}
