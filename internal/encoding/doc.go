// Package encoding compiles validated sources into exact ffmpeg invocations.
//
// A JobSpec names what to produce (an image-sequence encode, a clip merge, a
// rotation, or an aspect ratio adjustment) together with the closed set of
// options that steer it. Compile checks those options, then turns the JobSpec
// and the scratch workspace prepared for it into a CompiledJob: the binary,
// the argument vector, the output path, and the paths the runner must clean up
// afterwards.
//
// Compilation never touches the filesystem, and the same inputs always
// produce the same argument vector.
package encoding
