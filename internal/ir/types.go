package ir

// Scene is a compiled scene description: the sequences to load and the
// browsers that replay them.
type Scene struct {
	Sequences []SequenceSpec `json:"sequences"`
	Browsers  []BrowserSpec  `json:"browsers"`
}

// SequenceSpec describes one sequence and its items.
type SequenceSpec struct {
	Name          string     `json:"name"`
	IndexName     string     `json:"index_name"`
	IndexUnit     string     `json:"index_unit"`
	IndexType     string     `json:"index_type"` // "numeric" or "text"
	Tolerance     string     `json:"tolerance"`  // decimal string
	DataNodeClass string     `json:"data_node_class,omitempty"`
	Items         []ItemSpec `json:"items"`
}

// ItemSpec is one data item of a sequence.
type ItemSpec struct {
	IndexValue string `json:"index_value"`
	Class      string `json:"class"`
	Name       string `json:"name,omitempty"`
	Content    Object `json:"content"`
}

// BrowserSpec describes a browser over a master and synchronized sequences.
type BrowserSpec struct {
	Name               string     `json:"name"`
	Master             string     `json:"master"`
	Synchronized       []SyncSpec `json:"synchronized"`
	PlaybackRateFps    string     `json:"playback_rate_fps"` // decimal string
	PlaybackLooped     bool       `json:"playback_looped"`
	ItemSkipping       bool       `json:"item_skipping"`
	RecordingSampling  string     `json:"recording_sampling"` // "all" or "limitedToPlaybackFrameRate"
	RecordMasterOnly   bool       `json:"record_master_only"`
	IndexDisplayMode   string     `json:"index_display_mode"` // "index" or "indexValue"
	IndexDisplayFormat string     `json:"index_display_format"`
}

// SyncSpec holds the per-sequence synchronization properties of a browser
// entry. Sequence names the sequence; Proxy optionally names an existing
// scene node to use as a borrowed proxy.
type SyncSpec struct {
	Sequence           string `json:"sequence"`
	Proxy              string `json:"proxy,omitempty"`
	Playback           bool   `json:"playback"`
	Recording          bool   `json:"recording"`
	OverwriteProxyName bool   `json:"overwrite_proxy_name"`
	SaveChanges        bool   `json:"save_changes"`
	MissingItem        string `json:"missing_item"`
}

// Object converts the scene into an Object for canonical encoding.
func (s Scene) Object() Object {
	seqs := make(List, len(s.Sequences))
	for i, seq := range s.Sequences {
		items := make(List, len(seq.Items))
		for j, it := range seq.Items {
			content := it.Content
			if content == nil {
				content = Object{}
			}
			items[j] = Object{
				"index_value": String(it.IndexValue),
				"class":       String(it.Class),
				"name":        String(it.Name),
				"content":     content,
			}
		}
		seqs[i] = Object{
			"name":            String(seq.Name),
			"index_name":      String(seq.IndexName),
			"index_unit":      String(seq.IndexUnit),
			"index_type":      String(seq.IndexType),
			"tolerance":       String(seq.Tolerance),
			"data_node_class": String(seq.DataNodeClass),
			"items":           items,
		}
	}

	browsers := make(List, len(s.Browsers))
	for i, b := range s.Browsers {
		syncs := make(List, len(b.Synchronized))
		for j, ss := range b.Synchronized {
			syncs[j] = Object{
				"sequence":             String(ss.Sequence),
				"proxy":                String(ss.Proxy),
				"playback":             Bool(ss.Playback),
				"recording":            Bool(ss.Recording),
				"overwrite_proxy_name": Bool(ss.OverwriteProxyName),
				"save_changes":         Bool(ss.SaveChanges),
				"missing_item":         String(ss.MissingItem),
			}
		}
		browsers[i] = Object{
			"name":                 String(b.Name),
			"master":               String(b.Master),
			"synchronized":         syncs,
			"playback_rate_fps":    String(b.PlaybackRateFps),
			"playback_looped":      Bool(b.PlaybackLooped),
			"item_skipping":        Bool(b.ItemSkipping),
			"recording_sampling":   String(b.RecordingSampling),
			"record_master_only":   Bool(b.RecordMasterOnly),
			"index_display_mode":   String(b.IndexDisplayMode),
			"index_display_format": String(b.IndexDisplayFormat),
		}
	}

	return Object{
		"ir_version": String(IRVersion),
		"sequences":  seqs,
		"browsers":   browsers,
	}
}

// SequenceByName returns the sequence spec with the given name.
func (s Scene) SequenceByName(name string) (SequenceSpec, bool) {
	for _, seq := range s.Sequences {
		if seq.Name == name {
			return seq, true
		}
	}
	return SequenceSpec{}, false
}
