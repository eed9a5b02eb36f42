package state

import (
	"time"
)

// defaultStyle is used when source tree does not have stylesheet. It keeps
// program listings readable on e-ink devices.
const defaultStyle = `body {
  margin: 0 2%;
  text-align: left;
}

h1, h2, h3 {
  text-align: left;
  page-break-after: avoid;
}

pre, code {
  font-family: monospace;
  white-space: pre-wrap;
}

pre {
  margin: 1em 0;
  padding: 0.5em;
  border-left: 2px solid #808080;
}

blockquote {
  margin: 1em 3%;
}

table {
  border-collapse: collapse;
}

td, th {
  padding: 0.2em 0.5em;
}
`

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start:        time.Now(),
		DefaultStyle: []byte(defaultStyle),
	}
}
