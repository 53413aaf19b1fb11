// Package revision renders human readable descriptions of logged field
// changes.
//
// A Record describes one change (who, what field, old and new value). The
// Registry maps a revisionable type and a normalized field name to a
// Displayer, falling back through the type's ancestors (user -> model) and
// memoizing the outcome. A Presenter binds a record to the viewer's
// AuthContext and exposes Title, Description, Diff, Field and
// WasByCurrentUser to templates.
//
// Keys ending in a relation id are normalized before lookup, so a change to
// group_id is rendered by the displayer registered for group.
package revision
