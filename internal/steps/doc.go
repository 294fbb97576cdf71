// Package steps turns backend directive text into an ordered list of build steps.
//
// The backend answers with bolt-style artifact blocks:
//
//	<boltArtifact id="project" title="Project Files">
//	  <boltAction type="file" filePath="src/App.tsx">...</boltAction>
//	  <boltAction type="shell">npm install lodash</boltAction>
//	</boltArtifact>
//
// Each artifact yields one informational step followed by one step per
// action, in document order. Malformed or unknown blocks are skipped.
package steps
