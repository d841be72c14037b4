package common

// Version is set at build time with -ldflags "-X github.com/ruteri/diplomachain/common.Version=..."
var Version = "dev"

// ServiceName prefixes metric names and tags logs.
const ServiceName = "diplomachain"
