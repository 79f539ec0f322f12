package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ruoshui-go/mbtirec/internal/mbti"
	"github.com/ruoshui-go/mbtirec/internal/upstream"
	"github.com/ruoshui-go/mbtirec/pkg/models"
)

const (
	// maxScoringTextRunes caps the content excerpt embedded in a prompt.
	maxScoringTextRunes = 2000

	// minScoringTextRunes is the floor below which content carries too
	// little signal to score.
	minScoringTextRunes = 10
)

var urlRegex = regexp.MustCompile(`https?://\S+`)

// prepareScoringText reduces an article body to the plain text the prompt
// carries: markup and URLs stripped, whitespace collapsed, length capped.
func prepareScoringText(text string) string {
	cleaned := upstream.CleanText(text)
	cleaned = urlRegex.ReplaceAllString(cleaned, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if utf8.RuneCountInString(cleaned) > maxScoringTextRunes {
		cleaned = upstream.Truncate(cleaned, maxScoringTextRunes) + "..."
	}
	return cleaned
}

// scoringPromptTemplate asks for a probability split over the four MBTI
// dimensions. Kept in Chinese, matching the language of the content corpus.
const scoringPromptTemplate = `你是一个专业的MBTI心理学专家。请根据以下内容，分析其在MBTI四个维度上的倾向，并给出概率分布。

内容：
%s

请仔细分析这个内容，判断其在以下四个MBTI维度上的概率分布：

### 1. **E/I维度（外向/内向）**：
- **外向(E)**：表现出与他人交流、社交活动、外部世界互动的倾向
- **内向(I)**：表现出独处、内省、内在世界关注的倾向
- 要求：E + I = 1.0

### 2. **S/N维度（感觉/直觉）**：
- **感觉(S)**：关注具体细节、实际经验、现实情况
- **直觉(N)**：关注可能性、未来、抽象概念、潜在可能
- 要求：S + N = 1.0

### 3. **T/F维度（思维/情感）**：
- **思维(T)**：使用逻辑、客观分析、理性决策
- **情感(F)**：考虑他人感受、价值观、和谐关系、个人价值
- 要求：T + F = 1.0

### 4. **J/P维度（判断/知觉）**：
- **判断(J)**：表现出计划性、组织性、决断性
- **知觉(P)**：表现出灵活性、适应性、开放性
- 要求：J + P = 1.0

请返回JSON格式的结果：

` + "```json" + `
{
  "E": 0.7, "I": 0.3, "S": 0.4, "N": 0.6, "T": 0.8, "F": 0.2, "J": 0.6, "P": 0.4
}
` + "```" + `

注意：
1. 每个维度的两个概率必须是0-1之间的小数，且总和必须等于1.0
2. 概率表示该内容倾向于某个特征的程度
3. 只返回JSON格式，不要其他文字说明
4. 确保每对概率相加等于1.0：E+I=1.0, S+N=1.0, T+F=1.0, J+P=1.0
5.一定要按要求返回JSON格式，不要其他文字说明`

// buildScoringPrompt substitutes the cleaned content text into the template.
func buildScoringPrompt(text string) string {
	return fmt.Sprintf(scoringPromptTemplate, text)
}

var (
	// wrappedProbsRegex pulls the probabilities object out of the batched
	// {"results":[{content_id, mbti_probabilities:{...}}]} reply shape, which
	// the plain block regex cannot isolate once the wrapper nests braces.
	wrappedProbsRegex = regexp.MustCompile(`"mbti_probabilities"\s*:\s*(\{[^}]*\})`)

	// vectorBlockRegex locates a flat brace block that carries quoted trait
	// keys, covering both a bare JSON reply and one embedded in prose.
	vectorBlockRegex = regexp.MustCompile(`\{[^}]*"[EISNTFJP]"\s*:\s*[0-9.]+[^}]*\}`)

	// traitValueRegex scans for bare trait:value pairs when the reply drops
	// the quotes or the JSON framing entirely.
	traitValueRegex = regexp.MustCompile(`([EISNTFJP])\s*:\s*([0-9]*\.?[0-9]+)`)
)

// parseVectorResponse extracts one eight-trait probability distribution from
// an LLM reply. It tries the batched wrapper shape first, then a flat JSON
// block, then a bare trait:value scan. A well-formed JSON object whose values
// fall outside [0,1] is a hard failure; malformed or incomplete JSON falls
// through to the next stage.
func parseVectorResponse(content string) (models.MBTIVector, error) {
	if m := wrappedProbsRegex.FindStringSubmatch(content); m != nil {
		var probs map[string]float64
		if err := json.Unmarshal([]byte(m[1]), &probs); err == nil && hasAllTraits(probs) {
			if err := checkTraitRange(probs); err != nil {
				return models.MBTIVector{}, err
			}
			return mbti.Normalize(models.VectorFromMap(probs)), nil
		}
	}

	if block := vectorBlockRegex.FindString(content); block != "" {
		var probs map[string]float64
		if err := json.Unmarshal([]byte(block), &probs); err == nil && hasAllTraits(probs) {
			if err := checkTraitRange(probs); err != nil {
				return models.MBTIVector{}, err
			}
			return mbti.Normalize(models.VectorFromMap(probs)), nil
		}
	}

	matches := traitValueRegex.FindAllStringSubmatch(content, -1)
	if len(matches) >= 8 {
		probs := make(map[string]float64, 8)
		for _, m := range matches {
			if p, err := strconv.ParseFloat(m[2], 64); err == nil && p >= 0 && p <= 1 {
				probs[m[1]] = p
			}
		}
		if hasAllTraits(probs) {
			return mbti.Normalize(models.VectorFromMap(probs)), nil
		}
	}

	return models.MBTIVector{}, fmt.Errorf("no MBTI probabilities found in reply")
}

func hasAllTraits(probs map[string]float64) bool {
	for _, t := range models.TraitOrder {
		if _, ok := probs[t]; !ok {
			return false
		}
	}
	return true
}

func checkTraitRange(probs map[string]float64) error {
	for _, t := range models.TraitOrder {
		if p := probs[t]; p < 0 || p > 1 {
			return fmt.Errorf("probability %s=%v out of range", t, p)
		}
	}
	return nil
}
