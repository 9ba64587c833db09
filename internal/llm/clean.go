package llm

import "strings"

// logPrefixes are the line prefixes llama.cpp style tools use for
// diagnostics they print on stdout.
var logPrefixes = []string{
	"llama_",
	"llm_",
	"ggml_",
	"load_",
	"load:",
	"loading model",
	"main:",
	"build:",
	"system_info:",
	"sampler seed:",
	"sampler params:",
	"sampler chain:",
	"generate:",
	"print_info:",
	"common_",
	"[end of text]",
}

const endOfText = "[end of text]"

func isLogLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, p := range logPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

// CleanOutput drops diagnostic lines from the tool's stdout and trims the
// rest. Line breaks inside the generated text are kept.
func CleanOutput(stdout string) string {
	lines := strings.Split(strings.ReplaceAll(stdout, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if isLogLine(line) {
			continue
		}
		kept = append(kept, strings.TrimRight(strings.ReplaceAll(line, endOfText, ""), " \t"))
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// gpuFailureMarkers identify stderr output of a GPU or memory failure.
var gpuFailureMarkers = []string{
	"out of memory",
	"cuda error",
	"cudamalloc",
	"cublas_status",
	"hip error",
	"hipmalloc",
	"vk_error",
	"device lost",
	"failed to allocate",
	"unable to allocate",
	"insufficient memory",
}

func isGPUFailure(stderr string) bool {
	s := strings.ToLower(stderr)
	for _, m := range gpuFailureMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
