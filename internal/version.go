package mptag

const Version = "0.3.0"
