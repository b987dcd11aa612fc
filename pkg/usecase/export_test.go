package usecase

// Export for testing
var (
	ParseGitHubURL   = parseGitHubURL
	ExtractArchive   = extractArchive
	TruncateComment  = truncateComment
	IsRetryableError = isRetryableError
)

// ConfigService exports for testing
type ConfigService = configService

// Export configService methods for testing
func (c *configService) FindConfigInDirectory(dir string) string {
	return c.findConfigInDirectory(dir)
}
