// Package observers logs eino component lifecycle events (model, prompt
// and tool) for one pipeline run.
package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// NewAllCallbacks aggregates the model, prompt and tool observers into one
// handler tagged with the pipeline id.
func NewAllCallbacks(pipelineID string) einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		Tool(newToolHandler(pipelineID)).
		ChatModel(newModelHandler(pipelineID)).
		Prompt(newPromptHandler(pipelineID)).
		Handler()
}
