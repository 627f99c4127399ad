// Package toolchain dispatches the external build toolchains.
//
// The primary executable is built with the cross-compilation tool when
// installed, falling back to the host-native compiler; the auxiliary service
// binary goes through its own build script. Toolchains are opaque: only exit
// status and expected output paths are inspected. The Runner interface keeps
// every step testable without the real compilers.
package toolchain
