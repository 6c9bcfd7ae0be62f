package strategy

// Metadata travels from Prepare to Process as a plain map so the driver stays
// polymorphic over strategies, but each strategy works with a typed struct
// internally. baseMetadata is the part every strategy shares: where the
// file's artifacts live for the configured artifact mode.

const (
	metaDiffArtifactPath   = "diffArtifactPath"
	metaAnnotatedPath      = "annotatedArtifactPath"
	metaAnnotatedAppend    = "annotatedArtifactAppend"
	metaContentLines       = "contentLines"
	metaInlineFileRelative = "inlineFileRelativePath"
)

type baseMetadata struct {
	DiffArtifactPath string
	AnnotatedPath    string
	AnnotatedAppend  bool
}

func (m baseMetadata) fill(out map[string]any) {
	out[metaDiffArtifactPath] = m.DiffArtifactPath
	out[metaAnnotatedPath] = m.AnnotatedPath
	out[metaAnnotatedAppend] = m.AnnotatedAppend
}

func baseMetadataFrom(meta map[string]any) baseMetadata {
	return baseMetadata{
		DiffArtifactPath: stringValue(meta, metaDiffArtifactPath),
		AnnotatedPath:    stringValue(meta, metaAnnotatedPath),
		AnnotatedAppend:  boolValue(meta, metaAnnotatedAppend),
	}
}

// newBaseMetadata resolves the artifact destinations for one file up front,
// so Process can persist without re-deriving the per-file hash.
func newBaseMetadata(in PrepareInput, diffArtifactPath string) baseMetadata {
	annotatedPath, annotatedAppend := annotatedArtifactPath(in.Options, in.FilePath, in.Diff)
	return baseMetadata{
		DiffArtifactPath: diffArtifactPath,
		AnnotatedPath:    annotatedPath,
		AnnotatedAppend:  annotatedAppend,
	}
}

func stringValue(meta map[string]any, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

func boolValue(meta map[string]any, key string) bool {
	if v, ok := meta[key].(bool); ok {
		return v
	}
	return false
}

func stringSliceValue(meta map[string]any, key string) []string {
	switch v := meta[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
