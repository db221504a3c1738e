package s3util

// projectTag is the URL-encoded object tagging string used for cost
// allocation and lifecycle rules on the share bucket.
const projectTag = "Project=fish-photobooth"

// ProjectTagging returns the tagging string for PutObjectInput.Tagging.
func ProjectTagging() *string {
	t := projectTag
	return &t
}
