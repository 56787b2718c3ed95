package hashstore

// MergeForward combines freshly computed hashes with the previous table.
//
// Previous values are copied forward for every output of a source that was
// not built in this run, and for previous keys that the current run no
// longer represents. A previous key that names a source is copied under each
// of its mapped outputs. Outputs of built sources that were not regenerated
// are dropped. Values in current always win.
func MergeForward(current, previous Table, mapping OutputMapping, built map[string]bool) Table {
	merged := current.Clone()

	builtOutputs := make(map[string]bool)
	for src, outs := range mapping {
		if !built[src] {
			continue
		}
		for _, o := range outs {
			builtOutputs[o] = true
		}
	}

	for src, outs := range mapping {
		if built[src] {
			continue
		}
		for _, o := range outs {
			if _, ok := merged[o]; ok {
				continue
			}
			if prev, ok := previous[o]; ok {
				merged[o] = prev
			}
		}
	}

	for key, prev := range previous {
		if _, ok := merged[key]; ok {
			continue
		}
		if outs, isSource := mapping[key]; isSource {
			if built[key] {
				continue
			}
			for _, o := range outs {
				if _, ok := merged[o]; !ok {
					merged[o] = prev
				}
			}
			continue
		}
		if builtOutputs[key] {
			continue
		}
		merged[key] = prev
	}

	return merged
}

// BuiltOutputs lists the outputs of the given sources, in mapping order.
func BuiltOutputs(mapping OutputMapping, built map[string]bool) []string {
	var outs []string
	seen := make(map[string]bool)
	for src, list := range mapping {
		if !built[src] {
			continue
		}
		for _, o := range list {
			if !seen[o] {
				seen[o] = true
				outs = append(outs, o)
			}
		}
	}
	return outs
}
