// SPDX-License-Identifier: Apache-2.0

// Command heapctl replays allocation workloads against the freelist
// allocators and prints block layouts.
package main

func main() {
	execute()
}
