package ollama

import (
	"strings"
)

// The prompt templates mirror the restricted rule dialect the parser
// accepts; keeping them next to the client makes the contract with the
// model obvious.

const systemPromptTemplate = `
You are a network security engineer. You are tasked with monitoring incoming malicious and benign traffic, and writing one iptables rule accordingly.
You will observe examples of benign flows and malicious flows. You will also have access to the current iptables status.
Based on this information, you will write one single iptables rule, which should be enclosed within <rule></rule> tags.

Valid formats for the rule include:
{{accepted_formats}}

The /<subnet> is optional.

Examples of valid rules:
{{few_shot_examples}}
`

// AcceptedFormats are the rule shapes presented to the model.
var AcceptedFormats = []string{
	"-A FORWARD -s <src_ip>/<subnet> -j DROP",
	"-A FORWARD -d <dst_ip>/<subnet> -j DROP",
	"-A FORWARD -d <dst_ip>/<subnet> -p <protocol> -j DROP",
	"-A FORWARD -d <dst_ip>/<subnet> -p <protocol> --dport <dst_port> -j DROP",
}

var fewShotRules = []string{
	"-A FORWARD -s 10.25.0.41 -j DROP",
	"-A FORWARD -s 172.21.0.1/24 -j DROP",
	"-A FORWARD -d 208.42.13.2 -j DROP",
	"-A FORWARD -d 113.0.201.5 -p icmp -j DROP",
	"-A FORWARD -d 32.153.41.11 -p tcp --dport 22 -j DROP",
}

const userPromptTemplate = `
Malicious flows:
{{malicious_flows}}

Benign flows:
{{benign_flows}}

Iptables status:
{{iptables_status}}

Output only one iptables DROP rule to append to the FORWARD table, enclosed within <rule></rule> tags.
The rule must block most of the malicious flows and must not block most of the benign flows.
Keep your response short.
`

// DefaultStatus is the ruleset status rendered when no rules are active.
const DefaultStatus = "[Empty]"

// SystemPrompt renders the single-shot system prompt.
func SystemPrompt() string {
	tagged := func(rules []string) string {
		lines := make([]string, len(rules))
		for i, r := range rules {
			lines[i] = "<rule>" + r + "</rule>"
		}
		return strings.Join(lines, "\n")
	}

	prompt := strings.ReplaceAll(systemPromptTemplate, "{{accepted_formats}}", tagged(AcceptedFormats))
	prompt = strings.ReplaceAll(prompt, "{{few_shot_examples}}", tagged(fewShotRules))
	return prompt
}

// UserPrompt renders the single-shot user prompt from the two CSV windows
// and the current ruleset status.
func UserPrompt(maliciousCSV, benignCSV, status string) string {
	if status == "" {
		status = DefaultStatus
	}
	prompt := strings.ReplaceAll(userPromptTemplate, "{{malicious_flows}}", maliciousCSV)
	prompt = strings.ReplaceAll(prompt, "{{benign_flows}}", benignCSV)
	prompt = strings.ReplaceAll(prompt, "{{iptables_status}}", status)
	return prompt
}

const agentPromptTemplate = `
You are a network security engineer. Your task is to write a single iptables rule to block malicious traffic while allowing benign traffic, then evaluate it.

Output exactly one iptables DROP rule to append to the FORWARD table, enclosed within <rule></rule> tags. Do not produce multiple rules. Keep your response short.

IMPORTANT:
- Never block the subnets {{critical_subnets}}, even if they appear in the malicious flows below.
- If you find no safe DROP rule to generate (e.g., all malicious flows are from {{critical_subnets}}), output:
  <rule>none</rule>
- Prefer blocking entire source IPs or subnets rather than specifying protocols, ports, or destination ports unless absolutely necessary.

Valid formats include:
-A FORWARD -s <src_ip>/<subnet> -j DROP
-A FORWARD -d <dst_ip>/<subnet> -j DROP
-A FORWARD -d <dst_ip>/<subnet> -p <protocol> -j DROP
-A FORWARD -d <dst_ip>/<subnet> -p <protocol> --dport <dst_port> -j DROP

Malicious flows:
{{malicious_csv}}

Benign flows:
{{benign_csv}}
`

// AgentPrompt renders the iterative agent's seed prompt.
func AgentPrompt(maliciousCSV, benignCSV, criticalSubnets string) string {
	prompt := strings.ReplaceAll(agentPromptTemplate, "{{critical_subnets}}", criticalSubnets)
	prompt = strings.ReplaceAll(prompt, "{{malicious_csv}}", maliciousCSV)
	prompt = strings.ReplaceAll(prompt, "{{benign_csv}}", benignCSV)
	return strings.TrimSpace(prompt)
}
