package service

// predefinedStitch seeds one entry of the built-in catalog. The name is the
// chart abbreviation; wrongSide names the stitch that reads the same when the
// fabric is turned.
type predefinedStitch struct {
	name        string
	description string
	category    string
	wrongSide   string
}

var predefinedStitches = []predefinedStitch{
	// Basic Stitches
	{"ch", "Chain", "basic", ""},
	{"sl st", "Slip Stitch", "basic", ""},
	{"sc", "Single Crochet", "basic", ""},
	{"hdc", "Half Double Crochet", "basic", ""},
	{"dc", "Double Crochet", "basic", ""},
	{"tr", "Treble Crochet", "basic", ""},
	{"dtr", "Double Treble Crochet", "basic", ""},
	// Increase / Decrease
	{"inc", "Increase (2 stitches in one)", "increase", ""},
	{"dec", "Decrease (2 stitches together)", "decrease", ""},
	{"sc2tog", "Single Crochet 2 Together", "decrease", ""},
	{"hdc2tog", "Half Double Crochet 2 Together", "decrease", ""},
	{"dc2tog", "Double Crochet 2 Together", "decrease", ""},
	{"dc3tog", "Double Crochet 3 Together", "decrease", ""},
	{"tr2tog", "Treble Crochet 2 Together", "decrease", ""},
	// Post Stitches
	{"FPsc", "Front Post Single Crochet", "post", "BPsc"},
	{"BPsc", "Back Post Single Crochet", "post", "FPsc"},
	{"FPdc", "Front Post Double Crochet", "post", "BPdc"},
	{"BPdc", "Back Post Double Crochet", "post", "FPdc"},
	{"FPtr", "Front Post Treble Crochet", "post", "BPtr"},
	{"BPtr", "Back Post Treble Crochet", "post", "FPtr"},
	// Loop Variations
	{"BLO", "Back Loop Only", "advanced", "FLO"},
	{"FLO", "Front Loop Only", "advanced", "BLO"},
	// Specialty Stitches
	{"pc", "Popcorn Stitch", "specialty", ""},
	{"puff", "Puff Stitch", "specialty", ""},
	{"cl", "Cluster", "specialty", ""},
	{"sh", "Shell", "specialty", ""},
	{"bob", "Bobble", "specialty", ""},
	{"crab st", "Crab Stitch (Reverse SC)", "specialty", ""},
	{"lp st", "Loop Stitch", "specialty", ""},
	{"v-st", "V-Stitch", "specialty", ""},
	// Action
	{"sk", "Skip", "action", ""},
	{"yo", "Yarn Over", "action", ""},
	{"tch", "Turning Chain", "action", ""},
	{"MR", "Magic Ring", "action", ""},
}
