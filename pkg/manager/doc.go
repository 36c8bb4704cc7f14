// Package manager renders named templates through pluggable engine adapters.
//
// A Manager owns one engine.Entry per file extension. Render looks up the
// engine from the template name (or the default extension), runs the
// engine's one-time Prepare, merges per-call overrides over the engine
// settings, resolves and compiles the template and optional layout, and
// renders them against the call context laid over the global context.
//
// The rendered template is handed to the layout under the layout keyword
// ("content" by default). A context that already defines the keyword is
// rejected with viewerrors.ErrKeywordConflict.
//
// Compiled templates are cached per engine by absolute path unless isCached
// is disabled, in which case partials and helpers are also reloaded before
// every render. Two concurrent first renders of the same template may both
// compile; the cache keeps the last one stored.
package manager
