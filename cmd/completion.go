package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_filevault() {
    local cur prev words cword
    _init_completion || return

    local commands="init encrypt decrypt versions rm search shred tag diff verify repair passwd status compact genpass keyring help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        encrypt)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "--id --tag --note --keep --shred" -- "$cur"))
            else
                _filedir
            fi
            ;;
        shred)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "--force" -- "$cur"))
            else
                _filedir
            fi
            ;;
        decrypt)
            case "$prev" in
                --out|--restore)
                    _filedir
                    return
                    ;;
            esac
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "--version --out --restore --force" -- "$cur"))
            else
                COMPREPLY=($(compgen -W "$(_filevault_ids)" -- "$cur"))
            fi
            ;;
        versions|rm|tag|diff)
            if [[ "$cur" == -* && "$cmd" == tag ]]; then
                COMPREPLY=($(compgen -W "--tag --note" -- "$cur"))
            else
                COMPREPLY=($(compgen -W "$(_filevault_ids)" -- "$cur"))
            fi
            ;;
        passwd)
            COMPREPLY=($(compgen -W "--upgrade" -- "$cur"))
            ;;
        genpass)
            COMPREPLY=($(compgen -W "--length" -- "$cur"))
            ;;
        keyring)
            COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

_filevault_ids() {
    filevault search "" 2>/dev/null | awk '/^[^ ]/ {print $1}'
}

complete -F _filevault filevault
`

const zshCompletion = `#compdef filevault

_filevault() {
    local -a commands
    commands=(
        'init:Create a new store'
        'encrypt:Store a new version of files or directories'
        'decrypt:Write the plaintext of a stored version'
        'versions:List the versions of a file'
        'rm:Delete one version'
        'search:Find stored files by name, path, tag or notes'
        'shred:Overwrite and remove files'
        'tag:Replace tags and notes of a file'
        'diff:Show changes between two versions'
        'verify:Authenticate every stored version'
        'repair:Reconcile the index after an interrupted write'
        'passwd:Change the store password'
        'status:Show store status'
        'compact:Compact the store to reclaim disk space'
        'genpass:Generate a strong password'
        'keyring:Manage password in OS keyring'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'filevault commands' commands
            ;;
        args)
            case "${words[2]}" in
                encrypt)
                    _arguments \
                        '--id[Add a version to an existing identity]:id:_filevault_ids' \
                        '*--tag[Tag to attach]:tag:' \
                        '--note[Notes to attach]:note:' \
                        '--keep[Do not shred the sources]' \
                        '--shred[Shred even when disabled in config]' \
                        '*:file:_files'
                    ;;
                decrypt)
                    _arguments \
                        '--version[Version to decrypt]:version:' \
                        '--out[Output file]:file:_files' \
                        '--restore[Restore under the original name into]:dir:_files -/' \
                        '--force[Overwrite existing files]' \
                        '1:id:_filevault_ids'
                    ;;
                shred)
                    _arguments \
                        '--force[Do not ask for confirmation]' \
                        '*:file:_files'
                    ;;
                versions|rm|diff)
                    _arguments '1:id:_filevault_ids'
                    ;;
                tag)
                    _arguments \
                        '*--tag[Tag to set]:tag:' \
                        '--note[Notes to set]:note:' \
                        '1:id:_filevault_ids'
                    ;;
                passwd)
                    _arguments '--upgrade[Only raise the key derivation cost]'
                    ;;
                genpass)
                    _arguments '--length[Password length]:length:'
                    ;;
                keyring)
                    _values 'subcommand' save delete status
                    ;;
                help)
                    _describe -t commands 'filevault commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_filevault_ids() {
    local -a ids
    ids=(${(f)"$(filevault search "" 2>/dev/null | awk '/^[^ ]/ {print $1}')"})
    _describe -t ids 'stored files' ids
}

_filevault "$@"
`

const fishCompletion = `# filevault fish completions

set -l commands init encrypt decrypt versions rm search shred tag diff verify repair passwd status compact genpass keyring help completion

complete -c filevault -f

function __filevault_ids
    filevault search "" 2>/dev/null | awk '/^[^ ]/ {print $1}'
end

# Commands
complete -c filevault -n "not __fish_seen_subcommand_from $commands" -a init -d 'Create a new store'
complete -c filevault -n "not __fish_seen_subcommand_from $commands" -a encrypt -d 'Store a new version'
complete -c filevault -n "not __fish_seen_subcommand_from $commands" -a decrypt -d 'Write a stored version'
complete -c filevault -n "not __fish_seen_subcommand_from $commands" -a versions -d 'List versions'
complete -c filevault -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Delete one version'
complete -c filevault -n "not __fish_seen_subcommand_from $commands" -a search -d 'Find stored files'
complete -c filevault -n "not __fish_seen_subcommand_from $commands" -a shred -d 'Overwrite and remove files'
complete -c filevault -n "not __fish_seen_subcommand_from $commands" -a tag -d 'Replace tags and notes'
complete -c filevault -n "not __fish_seen_subcommand_from $commands" -a diff -d 'Compare two versions'
complete -c filevault -n "not __fish_seen_subcommand_from $commands" -a verify -d 'Authenticate all versions'
complete -c filevault -n "not __fish_seen_subcommand_from $commands" -a repair -d 'Reconcile the index'
complete -c filevault -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change store password'
complete -c filevault -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show store status'
complete -c filevault -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact the store'
complete -c filevault -n "not __fish_seen_subcommand_from $commands" -a genpass -d 'Generate a password'
complete -c filevault -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage password in OS keyring'
complete -c filevault -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c filevault -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# encrypt flags and files
complete -c filevault -n "__fish_seen_subcommand_from encrypt" -l id -d 'Existing identity' -xa "(__filevault_ids)"
complete -c filevault -n "__fish_seen_subcommand_from encrypt" -l tag -d 'Tag to attach' -x
complete -c filevault -n "__fish_seen_subcommand_from encrypt" -l note -d 'Notes to attach' -x
complete -c filevault -n "__fish_seen_subcommand_from encrypt" -l keep -d 'Do not shred sources'
complete -c filevault -n "__fish_seen_subcommand_from encrypt" -l shred -d 'Shred sources'
complete -c filevault -n "__fish_seen_subcommand_from encrypt" -F

# decrypt flags
complete -c filevault -n "__fish_seen_subcommand_from decrypt" -l version -d 'Version to decrypt' -x
complete -c filevault -n "__fish_seen_subcommand_from decrypt" -l out -d 'Output file' -r
complete -c filevault -n "__fish_seen_subcommand_from decrypt" -l restore -d 'Restore into directory' -r
complete -c filevault -n "__fish_seen_subcommand_from decrypt" -l force -d 'Overwrite existing files'

# commands taking an identity
complete -c filevault -n "__fish_seen_subcommand_from decrypt versions rm tag diff" -a "(__filevault_ids)"
complete -c filevault -n "__fish_seen_subcommand_from tag" -l tag -d 'Tag to set' -x
complete -c filevault -n "__fish_seen_subcommand_from tag" -l note -d 'Notes to set' -x

# shred
complete -c filevault -n "__fish_seen_subcommand_from shred" -l force -d 'Do not ask'
complete -c filevault -n "__fish_seen_subcommand_from shred" -F

complete -c filevault -n "__fish_seen_subcommand_from passwd" -l upgrade -d 'Raise key derivation cost'
complete -c filevault -n "__fish_seen_subcommand_from genpass" -l length -d 'Password length' -x

# keyring subcommands
complete -c filevault -n "__fish_seen_subcommand_from keyring" -a "save delete status"

# help completions
complete -c filevault -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c filevault -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
