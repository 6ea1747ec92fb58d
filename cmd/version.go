package cmd

// Version is set at build time:
// go build -ldflags "-X github.com/verityqa/verity/cmd.Version=1.2.0"
var Version = "0.1.0-dev"
