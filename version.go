package operant

// Version is the release of the operant controller. Release builds override it
// with -ldflags "-X github.com/aretw0/operant.Version=...".
var Version = "0.1.0-dev"
