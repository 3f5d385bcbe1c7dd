// Package native binds the Mono embedding API over two caller-supplied
// primitives: a Library that resolves exported symbols of a loaded module,
// and an Invoker that calls an exported function by resolved address.
//
// The split keeps this library free of any particular instrumentation
// mechanism. In-process embedders typically back the primitives with cgo
// dlopen/dlsym; out-of-process tooling backs them with its injection
// framework's remote-call channel.
//
// API tolerates runtime variants: the required exports exist everywhere,
// while newer capabilities (mono_thread_detach_if_exiting,
// mono_runtime_is_shutting_down) degrade to conservative fallbacks on
// legacy mono.dll builds.
package native
