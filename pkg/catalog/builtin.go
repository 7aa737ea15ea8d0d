package catalog

import (
	"encoding/json"

	"procrunner/pkg/runner"
)

// PdalPath is where the pdal binary lives in the processing image.
const PdalPath = "/code/SuperBuild/build/pdal/bin/pdal"

// Tiler wraps gdal2tiles.py.
func Tiler() runner.Descriptor {
	return runner.Descriptor{
		Name:    "tiler",
		Command: "gdal2tiles.py",
		Args: runner.ArgsFunc(func(o runner.Options) []string {
			return []string{
				"-z", o.String("zoomLevels"),
				"-n",
				"-w", "none",
				o.String("inputFile"),
				o.String("outputDir"),
			}
		}),
		RequiredOptions: []string{"zoomLevels", "inputFile", "outputDir"},
		FixturePath:     "gdal2tiles_output.txt",
	}
}

// PotreeConverter wraps the point cloud to Potree octree converter.
func PotreeConverter() runner.Descriptor {
	return runner.Descriptor{
		Name:    "potree",
		Command: "PotreeConverter",
		Args: runner.ArgsFunc(func(o runner.Options) []string {
			return []string{o.String("inputFile"), "-o", o.String("outputDir")}
		}),
		RequiredOptions: []string{"inputFile", "outputDir"},
		FixturePath:     "potree_output.txt",
	}
}

// PdalTranslate wraps "pdal translate". When the filters option is set it is
// passed as a JSON pipeline with --json.
func PdalTranslate() runner.Descriptor {
	return runner.Descriptor{
		Name:    "pdal-translate",
		Command: PdalPath,
		Args: runner.ArgsFunc(func(o runner.Options) []string {
			args := []string{"translate", "-i", o.String("inputFile"), "-o", o.String("outputFile")}
			if o.Has("filters") {
				args = append(args, "--json", filtersJSON(o["filters"]))
			}
			return args
		}),
		RequiredOptions: []string{"inputFile", "outputFile"},
	}
}

func filtersJSON(filters any) string {
	if s, ok := filters.(string); ok {
		return s
	}
	b, err := json.Marshal(filters)
	if err != nil {
		return ""
	}
	return string(b)
}

// Builtins returns every built-in descriptor.
func Builtins() []runner.Descriptor {
	return []runner.Descriptor{Tiler(), PotreeConverter(), PdalTranslate()}
}
