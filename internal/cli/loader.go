package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/prepop/internal/compiler"
	"github.com/roach88/prepop/internal/declare"
)

// LoadMode controls how errors are handled during kind loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the kinds compiled from a file or directory.
type LoadResult struct {
	Kinds     []*compiler.Kind
	FileCount int // Number of CUE files read
}

// LoadError represents an error that occurred during kind loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadKinds compiles the kind declarations in a CUE file, or in every CUE
// file of a directory. Kinds come out in declaration order.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadKinds(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("kinds path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing kinds path: %v", err)}}
	}

	var (
		value     cue.Value
		fileCount int
	)
	if info.IsDir() {
		value, fileCount, err = buildDir(path)
	} else {
		value, err = buildFile(path)
		fileCount = 1
	}
	if err != nil {
		return nil, []error{err}
	}

	result := &LoadResult{FileCount: fileCount}
	var errs []error

	kindsVal := value.LookupPath(cue.ParsePath("kind"))
	if !kindsVal.Exists() {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("no kinds found in %s", path)}}
	}

	iter, err := kindsVal.Fields()
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating kinds: %v", err)}}
	}
	for iter.Next() {
		k, compileErr := compiler.CompileKind(iter.Value())
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, "kind."+iter.Selector().String()))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Kinds = append(result.Kinds, k)
	}

	if len(result.Kinds) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("no kinds found in %s", path)})
	}

	return result, errs
}

// buildFile compiles a single CUE file.
func buildFile(path string) (cue.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}

	value := cuecontext.New().CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return cue.Value{}, buildError(err)
	}
	return value, nil
}

// buildDir loads the CUE package in dir.
func buildDir(dir string) (cue.Value, int, error) {
	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, 0, buildError(err)
	}
	return value, len(cueFiles), nil
}

func buildError(err error) *LoadError {
	le := &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	if positions := cueerrors.Positions(err); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// declarationError converts a declaration module error to a LoadError.
func declarationError(err error) *LoadError {
	if declare.IsCycle(err) {
		return &LoadError{Code: ErrCodeCycle, Message: err.Error()}
	}
	return &LoadError{Code: ErrCodeDeclaration, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeDeclaration = "E007" // Declaration module error
	ErrCodeCycle       = "E008" // Reference cycle between labels
	ErrCodeDatabase    = "E009" // Database open or query failed
	ErrCodeUnresolved  = "E010" // Batch aborted on an unresolved dependency
	ErrCodeBatchFailed = "E011" // Batch rolled back on a fatal error

	// Kind validation errors, shared with the compiler's codes
	ErrCodeKindIdentity  = compiler.ErrKindNoIdentity
	ErrCodeKindTransform = compiler.ErrUnknownTransform
	ErrCodeInvalidType   = compiler.ErrInvalidFieldType
	ErrCodeKindName      = compiler.ErrInvalidKindName
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	switch field {
	case "identity":
		return ErrCodeKindIdentity
	case "resolve":
		return ErrCodeKindTransform
	case "type", "fields":
		return ErrCodeInvalidType
	case "name":
		return ErrCodeKindName
	case "cue":
		return ErrCodeBuildFailed
	default:
		return ErrCodeGeneric
	}
}
