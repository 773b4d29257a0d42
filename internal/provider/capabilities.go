package provider

// Capabilities lists which optional operations a provider supports.
type Capabilities struct {
	HistoricalData bool `json:"historical_data"`
	SymbolSearch   bool `json:"symbol_search"`
}

// Descriptor is a provider together with its capability set, probed once.
type Descriptor struct {
	Provider
	Caps Capabilities

	historical HistoricalProvider
	searcher   SymbolSearcher
}

// Describe probes p for its optional capabilities. It returns nil for a nil
// provider so callers can treat "not configured" uniformly.
func Describe(p Provider) *Descriptor {
	if p == nil {
		return nil
	}
	d := &Descriptor{Provider: p}
	if h, ok := p.(HistoricalProvider); ok {
		d.historical = h
		d.Caps.HistoricalData = true
	}
	if s, ok := p.(SymbolSearcher); ok {
		d.searcher = s
		d.Caps.SymbolSearch = true
	}
	return d
}

// Historical returns the history capability if the provider has it.
func (d *Descriptor) Historical() (HistoricalProvider, bool) {
	if d == nil || !d.Caps.HistoricalData {
		return nil, false
	}
	return d.historical, true
}

// Searcher returns the symbol search capability if the provider has it.
func (d *Descriptor) Searcher() (SymbolSearcher, bool) {
	if d == nil || !d.Caps.SymbolSearch {
		return nil, false
	}
	return d.searcher, true
}
