package checkpointer

import (
	"fmt"
	"path/filepath"
	"time"
)

// FilenameEnumerator returns a function producing filenames of the form
// <prefix><i><extension>, where i starts at start+1 and increases by one
// on each call
func FilenameEnumerator(start int, prefix, extension string) func() string {
	i := start
	return func() string {
		i++
		return fmt.Sprintf("%v%v%v", prefix, i, extension)
	}
}

// FileTimer returns a function producing filenames suffixed with the
// current Unix time in nanoseconds
func FileTimer(prefix, extension string) func() string {
	return func() string {
		return fmt.Sprintf("%v-%v%v", prefix, time.Now().UnixNano(),
			extension)
	}
}

// InDir returns an enumerator writing weights<i>.json files into dir
func InDir(dir string) func() string {
	return FilenameEnumerator(0, filepath.Join(dir, "weights"), ".json")
}
