package utils

// BLASImplementation names the BLAS backing gonum in this build.
var BLASImplementation = "gonum (pure Go)"
