// Provides platform-appropriate paths for chariot's cache root.
//
// All paths follow XDG conventions on Linux and platform-native conventions
// on macOS and Windows. "chariot" is used as the subdirectory under each
// base path.
package paths
