package system

import "github.com/spf13/afero"

// AppFs is the filesystem used for configuration and fixture files.
// Tests replace it with an in-memory filesystem.
var AppFs afero.Fs = afero.NewOsFs()
