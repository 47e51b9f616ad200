package ai

// CommunitySummaryPrompt is the system prompt used to summarize the relation
// lines of one community. Each line has the form
// entity1 -> entity2 -> relation -> relationship_description.
const CommunitySummaryPrompt = "Bạn được cung cấp một tập hợp các mối quan hệ từ một đồ thị tri thức, " +
	"mỗi mối quan hệ được biểu diễn dưới dạng entity1->entity2->relation->relationship_description. " +
	"Nhiệm vụ của bạn là tạo ra một bản tóm tắt về các mối quan hệ này. " +
	"Bản tóm tắt nên bao gồm tên của các thực thể liên quan và một bản tổng hợp ngắn gọn về các mô tả mối quan hệ. " +
	"Mục tiêu là nắm bắt các chi tiết quan trọng và liên quan nhất để làm nổi bật bản chất và ý nghĩa của mỗi mối quan hệ. " +
	"Đảm bảo rằng bản tóm tắt là mạch lạc và tích hợp thông tin theo cách nhấn mạnh các khía cạnh chính của các mối quan hệ."

const ExtractPrompt = `
# Task Context
You extract **knowledge graph triplets** about the Vietnamese stock market from the provided text. Every triplet links a head entity to a tail entity through one relation.

# Background Data
- **Entity types:** [%s]
- **Relation types:** [%s]
- **Permitted relations per head entity type:**
%s
- **Document name:** [%s]

# Detailed Task Description & Rules
- Only use the entity types and relation types listed above, written exactly as given (Vietnamese, snake_case).
- The relation must be permitted for the type of the head entity.
- **head** and **tail** are the entity names as they appear in the text. Use the stock ticker in upper case for listed companies (e.g. "VNM", "HPG").
- **description** is one sentence in Vietnamese explaining the relation, including figures, units and dates mentioned in the text.
- Do not invent entities or figures that are not in the text.
- If nothing in the text matches the schema, return an empty list.

# Examples
**Text:** Lợi nhuận sau thuế quý 2 của Vinamilk (VNM) đạt 2.500 tỷ đồng, tăng 8%% so với cùng kỳ.

**Output:**
{
  "triplets": [
    {
      "head": "Lợi nhuận sau thuế quý 2",
      "head_type": "lợi_nhuận_sau_thuế",
      "relation": "đạt",
      "tail": "2.500 tỷ đồng",
      "tail_type": "lợi_nhuận",
      "description": "Lợi nhuận sau thuế quý 2 của Vinamilk đạt 2.500 tỷ đồng, tăng 8%% so với cùng kỳ."
    }
  ]
}

# Immediate Task Description or Request
Extract all triplets from the following text.

## Text
%s

# Output Formatting
Return a JSON object with a single key "triplets" containing the list of triplets.
`

const QueryMapPrompt = `
# Task Context
You answer a question using only the summary of one community of a knowledge graph about the Vietnamese stock market.

# Background Data
## Community summary
%s

# Detailed Task Description & Rules
- Use only the information in the community summary.
- If the summary contains nothing relevant to the question, answer with an empty string.
- Keep figures, units and dates exactly as written.

# Immediate Task Description or Request
%s

# Output Formatting
- Respond in the SAME LANGUAGE as the question.
- Plain text, at most a few sentences.
`

const QueryReducePrompt = `
# Task Context
You combine partial answers, each produced from one community of a knowledge graph, into one final answer.

# Background Data
## Partial answers
%s

# Detailed Task Description & Rules
- Merge overlapping statements and drop contradictions that are not supported by a majority of the partial answers.
- Do not add information that is not in the partial answers.

# Immediate Task Description or Request
%s

# Output Formatting
- Respond in the SAME LANGUAGE as the question.
- Concise plain text.
`

const NoDataPrompt = `
# Task Context
You are a helpful assistant. The user asked a question, but no relevant information was found in the knowledge graph.

# Background Data
User's question: %s

# Detailed Task Description & Rules
- Generate a brief response explaining that no relevant information is available.
- Do not invent or hallucinate any information.

# Output Formatting
- Respond in the SAME LANGUAGE as the user's question.
- Keep the response short (1-2 sentences).
`
