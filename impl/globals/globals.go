package globals

// Subdirectories of the storage path

// ContentDir holds one directory per imported unit
const ContentDir = "content"

// UnitsDir holds one JSON record per unit
const UnitsDir = "units"

// ReposDir holds one directory per repository with its scratchpad
const ReposDir = "repos"
