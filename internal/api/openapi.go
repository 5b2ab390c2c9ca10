package api

import (
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/pkg/openapi"
)

// buildSpec assembles the OpenAPI document served at /openapi.json.
func buildSpec(cfg *config.Config) *openapi.Spec {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)

	spec.Components.AddSchemas(map[string]*openapi.Schema{
		"SubmitCommand": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"platform":        {Type: "string", Example: "instagram"},
				"message_type":    {Type: "string", Enum: []any{"dm", "comment", "reply"}},
				"thread_id":       {Type: "string"},
				"comment_ref":     {Type: "string"},
				"sender_id":       {Type: "string"},
				"sender_username": {Type: "string"},
				"content":         {Type: "string"},
			},
			Required: []string{"platform", "message_type", "sender_id", "content"},
		},
		"Message": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":          {Type: "string", Format: "uuid"},
				"platform":    {Type: "string"},
				"status":      {Type: "string"},
				"degraded":    {Type: "boolean"},
				"content":     {Type: "string"},
				"received_at": {Type: "string", Format: "date-time"},
				"updated_at":  {Type: "string", Format: "date-time"},
			},
		},
		"ProcessedMessage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"message":        openapi.SchemaRef("Message"),
				"classification": {Type: "object"},
				"draft":          {Type: "object"},
				"verification":   {Type: "object"},
				"requires_hitl":  {Type: "boolean"},
				"can_autopilot":  {Type: "boolean"},
			},
		},
		"RecordCommand": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"message_id":  {Type: "string", Format: "uuid"},
				"draft_id":    {Type: "string", Format: "uuid"},
				"approved_by": {Type: "string"},
				"action":      {Type: "string", Enum: []any{"approve", "edit", "escalate"}},
				"edited_text": {Type: "string"},
				"reason":      {Type: "string"},
			},
			Required: []string{"message_id", "approved_by", "action"},
		},
		"Approval": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":          {Type: "string", Format: "uuid"},
				"message_id":  {Type: "string", Format: "uuid"},
				"draft_id":    {Type: "string", Format: "uuid"},
				"approved_by": {Type: "string"},
				"action":      {Type: "string"},
				"decided_at":  {Type: "string", Format: "date-time"},
			},
		},
		"Metrics": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"window_days":    {Type: "integer"},
				"total_messages": {Type: "integer"},
				"approval_rate":  {Type: "number"},
				"edit_rate":      {Type: "number"},
				"escalate_rate":  {Type: "number"},
				"autopilot_rate": {Type: "number"},
				"avg_confidence": {Type: "number"},
			},
		},
		"Error": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"error": {Type: "string"},
			},
		},
	})

	spec.Components.AddResponses(map[string]*openapi.Response{
		"BadRequest": openapi.ResponseJSON("Invalid request", "Error"),
		"NotFound":   openapi.ResponseJSON("Resource not found", "Error"),
		"Conflict":   openapi.ResponseJSON("State conflict; refresh and retry", "Error"),
	})

	spec.Paths["/messages"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List inbox messages",
			Tags:    []string{"messages"},
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("status", "string", "Filter by message status", false),
				openapi.QueryParam("page", "integer", "Page number", false),
				openapi.QueryParam("page_size", "integer", "Page size", false),
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Paginated inbox entries", "Message"),
			},
		},
		Post: &openapi.Operation{
			Summary:     "Submit a message for asynchronous processing",
			Tags:        []string{"messages"},
			RequestBody: openapi.RequestBodyJSON("SubmitCommand", true),
			Responses: map[int]*openapi.Response{
				202: openapi.ResponseJSON("Message accepted", "Message"),
				400: openapi.ResponseRef("BadRequest"),
			},
		},
	}

	spec.Paths["/messages/process"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Submit a message and process it synchronously",
			Tags:        []string{"messages"},
			RequestBody: openapi.RequestBodyJSON("SubmitCommand", true),
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Processed projection", "ProcessedMessage"),
				400: openapi.ResponseRef("BadRequest"),
			},
		},
	}

	spec.Paths["/messages/{id}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Full message history with pipeline artifacts",
			Tags:       []string{"messages"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Message id")},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Message detail", "ProcessedMessage"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/messages/events"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:     "State-change event stream",
			Description: "Server-sent events; each event carries message id, old status, and new status.",
			Tags:        []string{"messages"},
			Responses: map[int]*openapi.Response{
				200: {Description: "text/event-stream of state_change events"},
			},
		},
	}

	spec.Paths["/approvals"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Record a human decision",
			Tags:        []string{"approvals"},
			RequestBody: openapi.RequestBodyJSON("RecordCommand", true),
			Responses: map[int]*openapi.Response{
				201: openapi.ResponseJSON("Decision recorded", "Approval"),
				400: openapi.ResponseRef("BadRequest"),
				409: openapi.ResponseRef("Conflict"),
			},
		},
	}

	spec.Paths["/metrics"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "Decision quality metrics",
			Tags:    []string{"metrics"},
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("days", "integer", "Trailing window in days", false),
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Aggregated metrics", "Metrics"),
			},
		},
	}

	return spec
}
