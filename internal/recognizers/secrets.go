// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package recognizers

// SecretsRecognizers returns rules for credentials that leak into documents.
func SecretsRecognizers() []*Recognizer {
	return []*Recognizer{
		{
			Name:       "ApiKeyRecognizer",
			EntityType: "API_KEY",
			Patterns: []Pattern{
				{Name: "openai_key", Regex: `\bsk-(?:proj-)?[A-Za-z0-9_-]{20,}\b`, Score: 0.9},
				{Name: "github_token", Regex: `\bghp_[A-Za-z0-9]{36}\b`, Score: 0.9},
				{Name: "gitlab_token", Regex: `\bglpat-[A-Za-z0-9\-_]{20,}\b`, Score: 0.9},
				{Name: "stripe_key", Regex: `\b[sp]k_(?:live|test)_[A-Za-z0-9]{20,}\b`, Score: 0.9},
			},
			Context: []string{"key", "token", "api", "secret", "bearer"},
		},
		{
			Name:       "AwsAccessKeyRecognizer",
			EntityType: "AWS_ACCESS_KEY",
			Patterns: []Pattern{
				{Name: "aws_access_key", Regex: `\bAKIA[0-9A-Z]{16}\b`, Score: 0.9},
			},
			Context: []string{"aws", "key", "access"},
		},
		{
			Name:       "ConnectionStringRecognizer",
			EntityType: "CONNECTION_STRING",
			Patterns: []Pattern{
				{Name: "postgres_uri", Regex: `\bpostgres(?:ql)?://[^\s]+`, Score: 0.9},
				{Name: "mysql_uri", Regex: `\bmysql://[^\s]+`, Score: 0.9},
				{Name: "mongodb_uri", Regex: `\bmongodb(?:\+srv)?://[^\s]+`, Score: 0.9},
			},
			Context: []string{"database", "db", "connection", "uri", "url"},
		},
	}
}
