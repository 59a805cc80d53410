package worldstate

import (
	"sort"

	"github.com/vexd/vexd/pkg/storage"
	"github.com/vexd/vexd/pkg/types"
)

// Diff flattens both states' trees into path maps and set-differences
// them by path (spec.md §4.2 "Diff").
func (m *Manager) Diff(tx *storage.Tx, stateA, stateB string) (types.Diff, error) {
	a, err := m.flattenState(tx, stateA)
	if err != nil {
		return types.Diff{}, err
	}
	b, err := m.flattenState(tx, stateB)
	if err != nil {
		return types.Diff{}, err
	}
	return diffFlat(a, b), nil
}

func (m *Manager) flattenState(tx *storage.Tx, stateID string) (map[string]FlatEntry, error) {
	if stateID == "" {
		return map[string]FlatEntry{}, nil
	}
	s, err := tx.GetState(stateID)
	if err != nil {
		return nil, err
	}
	return m.FlattenTree(tx, s.RootTree)
}

func diffFlat(a, b map[string]FlatEntry) types.Diff {
	var d types.Diff

	for path, be := range a {
		ae, ok := b[path]
		switch {
		case !ok:
			d.Removed = append(d.Removed, types.PathChange{
				Path: path, Action: types.DiffRemoved,
				BeforeHash: be.Hash, BeforeMode: be.Mode,
			})
		case ae.Hash != be.Hash || ae.Mode != be.Mode:
			d.Modified = append(d.Modified, types.PathChange{
				Path: path, Action: types.DiffModified,
				BeforeHash: be.Hash, BeforeMode: be.Mode,
				AfterHash: ae.Hash, AfterMode: ae.Mode,
			})
		default:
			d.UnchangedCount++
		}
	}
	for path, ae := range b {
		if _, ok := a[path]; !ok {
			d.Added = append(d.Added, types.PathChange{
				Path: path, Action: types.DiffAdded,
				AfterHash: ae.Hash, AfterMode: ae.Mode,
			})
		}
	}

	sort.Slice(d.Added, func(i, j int) bool { return d.Added[i].Path < d.Added[j].Path })
	sort.Slice(d.Removed, func(i, j int) bool { return d.Removed[i].Path < d.Removed[j].Path })
	sort.Slice(d.Modified, func(i, j int) bool { return d.Modified[i].Path < d.Modified[j].Path })
	return d
}
