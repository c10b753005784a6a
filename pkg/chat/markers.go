package chat

import "strings"

// The backend relays raw model output, which can include the model's own
// tool-call framing tokens. Some models emit them with ASCII delimiters,
// others with Unicode look-alikes (U+FF5C fullwidth bar, U+2581 lower
// block in place of underscore). Both forms are stripped before any
// other processing.
var markerNames = []string{
	"tool_calls_begin",
	"tool_calls_end",
	"tool_call_begin",
	"tool_call_end",
	"tool_outputs_begin",
	"tool_outputs_end",
	"tool_output_begin",
	"tool_output_end",
	"tool_sep",
}

var markerReplacer = buildMarkerReplacer()

func buildMarkerReplacer() *strings.Replacer {
	var pairs []string
	for _, name := range markerNames {
		pairs = append(pairs, "<|"+name+"|>", "")

		unicodeName := strings.ReplaceAll(name, "_", "▁")
		pairs = append(pairs, "<｜"+unicodeName+"｜>", "")
	}
	return strings.NewReplacer(pairs...)
}

// FilterMarkers removes transport control markers from a single chunk.
// It is applied per chunk rather than on accumulated text since markers
// may repeat across a long response. A marker split across a chunk
// boundary is not stitched back together; the fragment passes through.
func FilterMarkers(chunk string) string {
	if !strings.ContainsRune(chunk, '<') {
		return chunk
	}
	return markerReplacer.Replace(chunk)
}
