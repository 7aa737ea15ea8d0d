package test

// SampleRegistryYAML returns a registry with a templated tool and a plain one.
func SampleRegistryYAML() string {
	return `replay: true
fixture-dir: fixtures
tools:
  - name: tiler
    command: gdal2tiles.py
    args: ["-z", "{{.zoomLevels}}", "-n", "-w", "none", "{{.inputFile}}", "{{.outputDir}}"]
    required: [zoomLevels, inputFile, outputDir]
    fixture: gdal2tiles_output.txt
  - name: greet
    command: sh
    args: ["-c", "echo hello {{.name}}"]
    required: [name]
    fixture: greet_output.txt
`
}

// SampleRegistryTOML returns the TOML flavour of a registry file.
func SampleRegistryTOML() string {
	return `fixture-dir = "fixtures"

[[tools]]
name = "potree"
command = "PotreeConverter"
args = ["{{.inputFile}}", "-o", "{{.outputDir}}"]
required = ["inputFile", "outputDir"]
fixture = "potree_output.txt"
`
}

// InvalidRegistryYAML returns a registry that parses but fails validation.
func InvalidRegistryYAML() string {
	return `tools:
  - name: broken
    command: ""
  - name: escape
    command: cat
    fixture: ../../etc/passwd
`
}

// GdalFixture returns canned gdal2tiles.py output.
func GdalFixture() []string {
	return []string{
		"Generating Base Tiles:",
		"0...10...20...30...40...50...60...70...80...90...100 - done.",
		"Generating Overview Tiles:",
		"0...10...20...30...40...50...60...70...80...90...100 - done.",
		"",
	}
}
