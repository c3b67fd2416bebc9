// Command harvester ingests RSS and Atom feeds into a bounded, deduplicated article store.
package main

func main() {
	Execute()
}
