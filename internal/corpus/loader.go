package corpus

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/corpus/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/feature"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/activelearn/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/logger"
)

// Split names understood by Provider.
const (
	SplitTrain = "train"
	SplitTest  = "test"
)

// Document is one raw text document reduced to term counts.
type Document struct {
	Class  string
	Path   string
	Counts map[string]int
}

// LoadDir reads a <root>/<class>/<document> tree. Every sub-directory is a
// class; every regular, non-hidden file inside it is one document.
func LoadDir(ctx context.Context, root string) ([]Document, error) {
	classDirs, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: reading corpus directory: %v", apperrors.ErrCorpus, err)
	}
	var docs []Document
	for _, classDir := range classDirs {
		if !classDir.IsDir() || strings.HasPrefix(classDir.Name(), ".") {
			continue
		}
		classPath := filepath.Join(root, classDir.Name())
		entries, err := os.ReadDir(classPath)
		if err != nil {
			return nil, fmt.Errorf("%w: reading class directory %s: %v", apperrors.ErrCorpus, classPath, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			path := filepath.Join(classPath, entry.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("%w: reading document %s: %v", apperrors.ErrCorpus, path, err)
			}
			docs = append(docs, Document{
				Class:  classDir.Name(),
				Path:   path,
				Counts: tokenizer.Counts(string(data)),
			})
		}
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents under %s", apperrors.ErrCorpus, root)
	}
	return docs, nil
}

// BuildText vectorizes a training and a test document set with a vocabulary
// learned from the training documents only. Class ids follow the sorted class
// names of the training set.
func BuildText(trainDocs, testDocs []Document) (train, test *Corpus, vec *Vectorizer, err error) {
	classSet := make(map[string]struct{})
	for _, d := range trainDocs {
		classSet[d.Class] = struct{}{}
	}
	classNames := make([]string, 0, len(classSet))
	for name := range classSet {
		classNames = append(classNames, name)
	}
	sort.Strings(classNames)
	classID := make(map[string]int, len(classNames))
	for i, name := range classNames {
		classID[name] = i
	}

	labelsOf := func(docs []Document) ([]int, []map[string]int, error) {
		labels := make([]int, len(docs))
		counts := make([]map[string]int, len(docs))
		for i, d := range docs {
			id, ok := classID[d.Class]
			if !ok {
				return nil, nil, fmt.Errorf("%w: class %q of %s not present in training split", apperrors.ErrCorpus, d.Class, d.Path)
			}
			labels[i] = id
			counts[i] = d.Counts
		}
		return labels, counts, nil
	}

	trainLabels, trainCounts, err := labelsOf(trainDocs)
	if err != nil {
		return nil, nil, nil, err
	}
	testLabels, testCounts, err := labelsOf(testDocs)
	if err != nil {
		return nil, nil, nil, err
	}
	vec = FitVectorizer(trainCounts)
	train, err = New(SplitTrain, vec.Transform(trainCounts), trainLabels, classNames)
	if err != nil {
		return nil, nil, nil, err
	}
	test, err = New(SplitTest, vec.Transform(testCounts), testLabels, classNames)
	if err != nil {
		return nil, nil, nil, err
	}
	return train, test, vec, nil
}

// LoadSVMLight parses pre-vectorized "label col:value ..." lines with 1-based
// column ids. Blank lines and '#' comments are skipped. The resulting
// dimension is the larger of dim and the highest column seen. Raw labels are
// mapped to dense class ids in ascending numeric order and kept as
// ClassNames, so "1..20" and "-1/+1" files both yield ids from 0.
func LoadSVMLight(r io.Reader, name string, dim int) (*Corpus, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var rows []feature.Vector
	var labels []int
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		label, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: bad label %q", apperrors.ErrCorpus, name, lineNo, fields[0])
		}
		values := make(map[int]float64, len(fields)-1)
		for _, f := range fields[1:] {
			colStr, valStr, ok := strings.Cut(f, ":")
			if !ok {
				return nil, fmt.Errorf("%w: %s line %d: bad pair %q", apperrors.ErrCorpus, name, lineNo, f)
			}
			col, err := strconv.Atoi(colStr)
			if err != nil || col < 1 {
				return nil, fmt.Errorf("%w: %s line %d: bad column %q", apperrors.ErrCorpus, name, lineNo, colStr)
			}
			val, err := strconv.ParseFloat(valStr, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s line %d: bad value %q", apperrors.ErrCorpus, name, lineNo, valStr)
			}
			values[col-1] = val
			if col > dim {
				dim = col
			}
		}
		rows = append(rows, feature.FromMap(values))
		labels = append(labels, label)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", apperrors.ErrCorpus, name, err)
	}
	ids, classNames := denseLabels(labels)
	return New(name, feature.Matrix{Rows: rows, Dim: dim}, ids, classNames)
}

func denseLabels(raw []int) ([]int, []string) {
	distinct := slices.Clone(raw)
	slices.Sort(distinct)
	distinct = slices.Compact(distinct)

	classID := make(map[int]int, len(distinct))
	classNames := make([]string, len(distinct))
	for i, y := range distinct {
		classID[y] = i
		classNames[i] = strconv.Itoa(y)
	}
	ids := make([]int, len(raw))
	for i, y := range raw {
		ids[i] = classID[y]
	}
	return ids, classNames
}

// Provider loads the train and test splits described by a CorpusConfig once
// and serves them on demand.
type Provider struct {
	cfg    config.CorpusConfig
	mu     sync.Mutex
	splits map[string]*Corpus
	logger *slog.Logger
}

func NewProvider(cfg config.CorpusConfig) *Provider {
	return &Provider{
		cfg:    cfg,
		logger: logger.WithComponent("corpus"),
	}
}

// Split returns the named split ("train" or "test"), loading both on first
// use.
func (p *Provider) Split(ctx context.Context, name string) (*Corpus, error) {
	if name != SplitTrain && name != SplitTest {
		return nil, fmt.Errorf("%w: unknown split %q", apperrors.ErrInvalidInput, name)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.splits == nil {
		train, test, err := p.load(ctx)
		if err != nil {
			return nil, err
		}
		p.splits = map[string]*Corpus{SplitTrain: train, SplitTest: test}
	}
	return p.splits[name], nil
}

func (p *Provider) load(ctx context.Context) (*Corpus, *Corpus, error) {
	switch p.cfg.Format {
	case "svmlight":
		train, err := loadSVMLightFile(p.cfg.TrainPath, SplitTrain, p.cfg.Dim)
		if err != nil {
			return nil, nil, err
		}
		test, err := loadSVMLightFile(p.cfg.TestPath, SplitTest, p.cfg.Dim)
		if err != nil {
			return nil, nil, err
		}
		if test, err = test.AlignClasses(train.ClassNames); err != nil {
			return nil, nil, err
		}
		dim := max(train.X.Dim, test.X.Dim)
		train.X.Dim, test.X.Dim = dim, dim
		p.logShapes(train, test)
		return train, test, nil
	case "dir", "":
		trainDocs, err := LoadDir(ctx, p.cfg.TrainPath)
		if err != nil {
			return nil, nil, err
		}
		testDocs, err := LoadDir(ctx, p.cfg.TestPath)
		if err != nil {
			return nil, nil, err
		}
		train, test, _, err := BuildText(trainDocs, testDocs)
		if err != nil {
			return nil, nil, err
		}
		p.logShapes(train, test)
		return train, test, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown corpus format %q", apperrors.ErrInvalidInput, p.cfg.Format)
	}
}

func (p *Provider) logShapes(train, test *Corpus) {
	p.logger.Info("corpus loaded",
		"train_size", train.Len(),
		"test_size", test.Len(),
		"vocab_size", train.X.Dim,
		"classes", train.NumClasses(),
	)
}

func loadSVMLightFile(path, name string, dim int) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", apperrors.ErrCorpus, path, err)
	}
	defer f.Close()
	return LoadSVMLight(f, name, dim)
}
