// Command loot-sort is a reference CLI over pkg/sorter. Build-time
// variables version/commit/date are declared in root.go and populated via
// -ldflags.
package main

func main() {
	Execute()
}
