package grader

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// replySchemaJSON describes the reply the current prompt asks for. Replies
// that normalize but do not match it are reported as schema drift.
const replySchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["verdict", "suggested_rating", "feedback"],
  "properties": {
    "verdict": {"enum": ["Correct", "Partially Correct", "Incorrect"]},
    "suggested_rating": {"enum": ["Again", "Hard", "Good", "Easy"]},
    "feedback": {"type": "string", "minLength": 1},
    "memory_tip": {"type": "string"}
  }
}`

const replySchemaURL = "https://recallgrade.local/schemas/grader-reply.json"

var replySchema = mustCompileReplySchema()

func mustCompileReplySchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(replySchemaJSON))
	if err != nil {
		panic("grader: invalid reply schema: " + err.Error())
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(replySchemaURL, doc); err != nil {
		panic("grader: invalid reply schema: " + err.Error())
	}
	return c.MustCompile(replySchemaURL)
}
