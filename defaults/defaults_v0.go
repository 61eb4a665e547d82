package defaults

import (
	"github.com/sahib/config"
	h "github.com/sahib/snap/util/hashlib"
)

// DefaultsV0 is the default config validation for snap
var DefaultsV0 = config.DefaultMapping{
	"repo": config.DefaultMapping{
		"id": config.DefaultEntry{
			Default:      "",
			NeedsRestart: true,
			Docs:         "Unique id of this repository. Generated on init.",
		},
		"hash_algorithm": config.DefaultEntry{
			Default:      h.DefaultAlgorithm,
			NeedsRestart: true,
			Docs:         "Hash algorithm for content and snapshot ids. Cannot be changed after init.",
			Validator:    EnumValidator(h.Algorithms()...),
		},
		"database": config.DefaultEntry{
			Default:      "disk",
			NeedsRestart: true,
			Docs:         "Metadata backend: »disk« (one file per key), »badger« or »memory« (dumped to meta.gob on close).",
			Validator:    EnumValidator("disk", "badger", "memory"),
		},
	},
	"snapshot": config.DefaultMapping{
		"strategy": config.DefaultEntry{
			Default:      "manifest",
			NeedsRestart: true,
			Docs:         "»manifest« stores only digests; »dircopy« also copies every snapshotted file.",
			Validator:    EnumValidator("manifest", "dircopy"),
		},
		"short_id_length": config.DefaultEntry{
			Default:      7,
			NeedsRestart: false,
			Docs:         "How many characters of a snapshot id are shown.",
			Validator:    IntRangeValidator(4, 64),
		},
	},
	"lock": config.DefaultMapping{
		"enabled": config.DefaultEntry{
			Default:      true,
			NeedsRestart: false,
			Docs:         "Take the repository lock for every command.",
		},
		"timeout": config.DefaultEntry{
			Default:      "5s",
			NeedsRestart: false,
			Docs:         "How long to wait for a lock held by another process.",
			Validator:    DurationValidator(),
		},
	},
	"log": config.DefaultMapping{
		"level": config.DefaultEntry{
			Default:      "warning",
			NeedsRestart: false,
			Docs:         "Log level of the command line tool (debug, info, warning, error).",
			Validator:    EnumValidator("debug", "info", "warning", "error"),
		},
	},
	"ui": config.DefaultMapping{
		"color": config.DefaultEntry{
			Default:      true,
			NeedsRestart: false,
			Docs:         "Use colors in the terminal output.",
		},
	},
}
