// Command forkjoin runs parallel reductions on a work-stealing pool and
// reports timing, steal activity and speedup across pool sizes.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
