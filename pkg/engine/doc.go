// Package engine registers template adapters under a file extension.
//
// Adapters are plain values probed for capabilities: Compiler or
// AsyncCompiler (one is required), Initializer, PartialRegistrar and
// HelperRegistrar. NewEntry picks the calling convention once from the
// configured compile mode and wraps it into a CompileFunc that honours
// context cancellation. An Entry also owns the compiled template cache, the
// one-time Prepare gate and loading of partial and helper files.
package engine
