package entity

// Technologies and Concepts are closed lexicons matched by the TECHNOLOGY
// and CONCEPT rules, in the table-of-constants style of
// store.DefaultCodeStopWords. They are intentionally small and
// domain-general; callers embedding docgraph into a narrower domain are
// expected to grow these via configuration rather than this package growing
// open-ended.
var Technologies = []string{
	"go", "golang", "python", "rust", "java", "javascript", "typescript",
	"docker", "kubernetes", "postgresql", "postgres", "mysql", "sqlite",
	"redis", "kafka", "grpc", "graphql", "rest", "react", "vue", "angular",
	"node", "nodejs", "terraform", "aws", "gcp", "azure", "linux",
	"nginx", "elasticsearch", "mongodb", "git", "github", "gitlab",
}

// Concepts are multi-word phrases matched as a whole with word boundaries.
var Concepts = []string{
	"machine learning", "deep learning", "neural network",
	"knowledge graph", "vector search", "semantic search",
	"natural language processing", "large language model",
	"information retrieval", "graph database", "version control",
	"continuous integration", "continuous deployment", "load balancing",
	"service mesh", "event sourcing", "circuit breaker",
}

// ProperNounStopWords rejects common capitalized words (sentence starts,
// pronouns, weekdays, months) that are not meaningful proper nouns on their
// own, in the same style as store.DefaultCodeStopWords.
var ProperNounStopWords = map[string]struct{}{
	"the": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"it": {}, "its": {}, "we": {}, "our": {}, "you": {}, "your": {},
	"i": {}, "he": {}, "she": {}, "they": {}, "there": {}, "here": {},
	"monday": {}, "tuesday": {}, "wednesday": {}, "thursday": {}, "friday": {}, "saturday": {}, "sunday": {},
	"january": {}, "february": {}, "march": {}, "april": {}, "may": {}, "june": {},
	"july": {}, "august": {}, "september": {}, "october": {}, "november": {}, "december": {},
}
