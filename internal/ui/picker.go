package ui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/tonylturner/dccverify/internal/suite"
)

// ErrNoGroups is returned when the picker closes with nothing selected.
var ErrNoGroups = errors.New("no groups selected")

// groupOptions lists every group, pre-selecting the ones named in selected.
// An empty selection pre-selects all of them.
func groupOptions(groups []suite.Group, selected []string) []huh.Option[string] {
	want := make(map[string]bool, len(selected))
	for _, name := range selected {
		want[name] = true
	}
	opts := make([]huh.Option[string], 0, len(groups))
	for _, g := range groups {
		label := fmt.Sprintf("%-12s %2d cases", g.Name, len(g.Cases))
		if g.Railcom {
			label += "  (RailCom decode)"
		}
		opts = append(opts, huh.NewOption(label, g.Name).Selected(len(selected) == 0 || want[g.Name]))
	}
	return opts
}

func buildPickerForm(groups []suite.Group, picked *[]string, selected []string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Test groups").
				Description("Each group runs twice: verbose feedback, then quiet.").
				Key("groups").
				Options(groupOptions(groups, selected)...).
				Validate(func(v []string) error {
					if len(v) == 0 {
						return ErrNoGroups
					}
					return nil
				}).
				Value(picked),
		),
	)
}

// PickGroups asks the user which groups to run. selected seeds the choice.
// The returned groups keep catalog order.
func PickGroups(groups []suite.Group, selected []string) ([]suite.Group, error) {
	var picked []string
	if err := buildPickerForm(groups, &picked, selected).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, ErrNoGroups
		}
		return nil, err
	}
	if len(picked) == 0 {
		return nil, ErrNoGroups
	}
	return inCatalogOrder(groups, picked), nil
}

func inCatalogOrder(groups []suite.Group, names []string) []suite.Group {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []suite.Group
	for _, g := range groups {
		if want[g.Name] {
			out = append(out, g)
		}
	}
	return out
}
