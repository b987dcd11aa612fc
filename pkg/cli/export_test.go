package cli

// Export for testing
var (
	ResolveInput = resolveInput
	PrintResult  = printResult
)
