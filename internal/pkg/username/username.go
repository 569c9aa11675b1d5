// Package username generates random human-looking usernames for account
// creation.
package username

import (
	"fmt"
	"math/rand/v2"
)

var adjectives = []string{
	"brave", "calm", "clever", "cosmic", "crimson", "eager", "fancy",
	"gentle", "golden", "happy", "icy", "jolly", "lucky", "mellow",
	"noble", "quick", "quiet", "rapid", "shiny", "silent", "sly",
	"snowy", "solar", "stormy", "sunny", "swift", "tiny", "vivid",
	"wild", "witty",
}

var nouns = []string{
	"badger", "bear", "comet", "crane", "dolphin", "eagle", "falcon",
	"ferret", "fox", "hawk", "heron", "koala", "lemur", "lynx",
	"marten", "meteor", "otter", "owl", "panda", "pigeon", "puma",
	"rabbit", "raven", "salmon", "sparrow", "stoat", "tiger", "walrus",
	"weasel", "wolf",
}

// Random returns a candidate username of the form <adjective><noun><NN>.
// Callers must still check availability with the server.
func Random() string {
	return fmt.Sprintf("%s%s%02d",
		adjectives[rand.N(len(adjectives))],
		nouns[rand.N(len(nouns))],
		rand.N(100),
	)
}
