package pluginproto

// Request is a message the host sends to a plugin. The set of
// implementations is closed; see the variant types below.
type Request interface {
	requestKind() string
}

// Response is a message a plugin returns to the host. Any request may be
// answered with Error instead of its matching variant.
type Response interface {
	responseKind() string
}

// Kind returns a stable lower-case name for a request, used in logs,
// metric labels and span names.
func Kind(r Request) string {
	if r == nil {
		return "nil"
	}
	return r.requestKind()
}

// ResponseKind is the Response counterpart of Kind.
func ResponseKind(r Response) string {
	if r == nil {
		return "nil"
	}
	return r.responseKind()
}

// Identity queries.
type (
	GetName             struct{}
	GetVersion          struct{}
	GetDescription      struct{}
	GetSupportedFormats struct{}
	GetAvailableActions struct{}
)

// Decorate asks a plugin to attach custom fields to one entry.
type Decorate struct {
	Entry DecoratedEntry
}

// FormatField asks a plugin for the text it contributes to one entry in one view.
type FormatField struct {
	Entry DecoratedEntry
	View  string
}

// PerformAction invokes a named plugin action.
type PerformAction struct {
	Action string
	Args   []string
}

func (GetName) requestKind() string             { return "get_name" }
func (GetVersion) requestKind() string          { return "get_version" }
func (GetDescription) requestKind() string      { return "get_description" }
func (GetSupportedFormats) requestKind() string { return "get_supported_formats" }
func (Decorate) requestKind() string            { return "decorate" }
func (FormatField) requestKind() string         { return "format_field" }
func (PerformAction) requestKind() string       { return "perform_action" }
func (GetAvailableActions) requestKind() string { return "get_available_actions" }

// Response variants, one per request kind.
type (
	Name struct {
		Value string
	}
	Version struct {
		Value string
	}
	Description struct {
		Value string
	}
	SupportedFormats struct {
		Views []string
	}
	Decorated struct {
		Entry DecoratedEntry
	}
	// FormattedField carries an optional value; nil means the plugin has
	// nothing to contribute for this entry and view.
	FormattedField struct {
		Value *string
	}
	// ActionResult reports an action outcome. Message is the failure
	// reason when OK is false and is otherwise informational.
	ActionResult struct {
		OK      bool
		Message string
	}
	AvailableActions struct {
		Actions []ActionInfo
	}
	// Error is a plugin-reported failure of any request.
	Error struct {
		Message string
	}
)

func (Name) responseKind() string             { return "name" }
func (Version) responseKind() string          { return "version" }
func (Description) responseKind() string      { return "description" }
func (SupportedFormats) responseKind() string { return "supported_formats" }
func (Decorated) responseKind() string        { return "decorated" }
func (FormattedField) responseKind() string   { return "formatted_field" }
func (ActionResult) responseKind() string     { return "action_result" }
func (AvailableActions) responseKind() string { return "available_actions" }
func (Error) responseKind() string            { return "error" }

// Field returns a FormattedField holding v.
func Field(v string) FormattedField {
	return FormattedField{Value: &v}
}

// NoField is the empty FormattedField.
func NoField() FormattedField {
	return FormattedField{}
}

// ActionOK and ActionFailed build ActionResult values.
func ActionOK() ActionResult { return ActionResult{OK: true} }

func ActionFailed(message string) ActionResult {
	return ActionResult{Message: message}
}
