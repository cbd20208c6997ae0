package registry

import "context"

// FakeLookup answers lookups from a fixed table and records every call.
type FakeLookup struct {
	Results map[int64]LookupResult
	// Default is returned for identifiers missing from Results.
	Default LookupResult
	Err     error
	Calls   []int64
}

var _ Lookup = (*FakeLookup)(nil)

func (f *FakeLookup) LookupByID(_ context.Context, id int64) (LookupResult, error) {
	f.Calls = append(f.Calls, id)
	if f.Err != nil {
		return LookupResult{}, f.Err
	}
	if res, ok := f.Results[id]; ok {
		return res, nil
	}
	return f.Default, nil
}

// Set makes lookups of id return records with status OK.
func (f *FakeLookup) Set(id int64, records ...Record) {
	if f.Results == nil {
		f.Results = make(map[int64]LookupResult)
	}
	f.Results[id] = LookupResult{Status: StatusOK, Records: records}
}
