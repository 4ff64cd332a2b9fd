// Package pluginsdk is the plugin-author side of the lsx extension API.
//
// A plugin is a Go package main built with -buildmode=plugin that exports
// the call gate under the well-known symbol name:
//
//	type gitPlugin struct{ actions *pluginsdk.ActionRegistry }
//	// ... implement pluginsdk.Plugin
//
//	var LsxPluginCall = pluginsdk.Gate(&gitPlugin{})
//
//	func main() {}
//
// The gate decodes the host's request, calls the matching Plugin method and
// encodes the response. Errors returned by the plugin become Error
// responses; the host shows their text to the user where appropriate.
package pluginsdk

import (
	"fmt"

	"github.com/platinummonkey/lsx/pkg/pluginproto"
)

// EntrySymbol is the exported symbol the host resolves in every plugin.
const EntrySymbol = "LsxPluginCall"

// Plugin is implemented by every extension.
type Plugin interface {
	Name() string
	Version() string
	Description() string
	SupportedViews() []string

	// Decorate returns entry with the plugin's custom fields added.
	Decorate(entry pluginproto.DecoratedEntry) (pluginproto.DecoratedEntry, error)

	// FormatField returns the text contributed to entry in view, if any.
	FormatField(entry pluginproto.DecoratedEntry, view string) (string, bool)
}

// ActionProvider is implemented by plugins that expose named actions.
type ActionProvider interface {
	Actions() *ActionRegistry
}

// Gate adapts p to the byte-level call convention of the host.
func Gate(p Plugin) func([]byte) []byte {
	return func(in []byte) []byte {
		req, err := pluginproto.DecodeRequest(in)
		if err != nil {
			return mustEncode(pluginproto.Error{Message: err.Error()})
		}
		return mustEncode(Handle(p, req))
	}
}

// Handle answers one decoded request. It is exported for plugins that
// embed their own transport and for tests.
func Handle(p Plugin, req pluginproto.Request) pluginproto.Response {
	switch r := req.(type) {
	case pluginproto.GetName:
		return pluginproto.Name{Value: p.Name()}
	case pluginproto.GetVersion:
		return pluginproto.Version{Value: p.Version()}
	case pluginproto.GetDescription:
		return pluginproto.Description{Value: p.Description()}
	case pluginproto.GetSupportedFormats:
		return pluginproto.SupportedFormats{Views: p.SupportedViews()}
	case pluginproto.Decorate:
		out, err := p.Decorate(r.Entry.Clone())
		if err != nil {
			return pluginproto.Error{Message: err.Error()}
		}
		return pluginproto.Decorated{Entry: out}
	case pluginproto.FormatField:
		if v, ok := p.FormatField(r.Entry, r.View); ok {
			return pluginproto.Field(v)
		}
		return pluginproto.NoField()
	case pluginproto.PerformAction:
		ap, ok := p.(ActionProvider)
		if !ok {
			return pluginproto.ActionFailed(fmt.Sprintf("unknown action: %s", r.Action))
		}
		if err := ap.Actions().Perform(r.Action, r.Args); err != nil {
			return pluginproto.ActionFailed(err.Error())
		}
		return pluginproto.ActionOK()
	case pluginproto.GetAvailableActions:
		ap, ok := p.(ActionProvider)
		if !ok {
			return pluginproto.AvailableActions{}
		}
		return pluginproto.AvailableActions{Actions: ap.Actions().List()}
	default:
		return pluginproto.Error{Message: fmt.Sprintf("unsupported request %s", pluginproto.Kind(req))}
	}
}

func mustEncode(resp pluginproto.Response) []byte {
	b, err := pluginproto.EncodeResponse(resp)
	if err != nil {
		// Only reachable for response types outside the schema.
		b, _ = pluginproto.EncodeResponse(pluginproto.Error{Message: err.Error()})
	}
	return b
}
