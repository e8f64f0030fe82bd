// Package autoload registers every built-in engine. Blank-import it from
// the binary entry point to populate the engine registry.
package autoload

import (
	_ "cognichoir/pkg/aiengine/gemini"
	_ "cognichoir/pkg/aiengine/grok"
	_ "cognichoir/pkg/aiengine/ollama"
	_ "cognichoir/pkg/aiengine/openaieng"
)
